package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/Skotchmaster/magister_portal/internal/config"
	"github.com/Skotchmaster/magister_portal/internal/db"
	"github.com/Skotchmaster/magister_portal/internal/events"
	"github.com/Skotchmaster/magister_portal/internal/httpserver"
	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/mailer"
	"github.com/Skotchmaster/magister_portal/internal/media"
	"github.com/Skotchmaster/magister_portal/internal/repo"
	"github.com/Skotchmaster/magister_portal/internal/search"
	"github.com/Skotchmaster/magister_portal/internal/service"
	"github.com/Skotchmaster/magister_portal/internal/tokens"
)

const siteName = "Magister"

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	initCtx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 10*time.Second)
	store, closeStore, err := openStore(initCtx, cfg)
	if err != nil {
		cancel()
		logger.Error("db_init_error", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}

	mediaStore, err := media.New(initCtx, cfg)
	if err != nil {
		cancel()
		logger.Error("media_init_error", "error", err)
		os.Exit(1)
	}

	var index service.PostIndex
	if cfg.ESURL != "" {
		es, err := search.NewClient(initCtx, search.Options{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			cancel()
			logger.Error("es_init_error", "error", err)
			os.Exit(1)
		}
		postIndex := search.NewPostIndex(es, cfg.ESIndex)
		if err := postIndex.EnsureIndex(initCtx); err != nil {
			cancel()
			logger.Error("es_index_error", "error", err)
			os.Exit(1)
		}
		index = postIndex
	}

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.MailEnabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPOptions{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPassword,
			From:     cfg.EmailFrom,
		})
	} else {
		logger.Warn("mail_disabled", "reason", "SMTP settings are incomplete, emails are logged only")
	}

	pub := events.New(cfg.KafkaBrokers)
	tok := tokens.NewService(cfg.JWTSecret, store, tokens.WithTTL(cfg.TokenTTL))
	authSvc := &service.AuthService{Users: store, Tokens: tok, Events: pub}

	if cfg.AdminSeedEmail != "" {
		if _, err := authSvc.EnsureAdmin(initCtx, cfg.AdminSeedEmail, cfg.AdminSeedPassword); err != nil {
			cancel()
			logger.Error("admin_seed_error", "error", err)
			os.Exit(1)
		}
	}
	cancel()

	deps := &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{Svc: authSvc},
		Posts: &httpserver.PostHTTP{Svc: &service.PostService{
			Posts:  store,
			Media:  mediaStore,
			Index:  index,
			Events: pub,
		}},
		Recovery: &httpserver.RecoveryHTTP{Svc: &service.RecoveryService{
			Users:       store,
			Mailer:      sender,
			Events:      pub,
			SiteName:    siteName,
			FrontendURL: cfg.FrontendURL,
			TTL:         cfg.ResetTokenTTL,
		}},
		Contact: &httpserver.ContactHTTP{Svc: &service.ContactService{
			Contacts:   store,
			Mailer:     sender,
			Events:     pub,
			AdminEmail: cfg.AdminEmail,
		}},
		Verifier: tok,
		Ready:    store.Ping,
	}
	if local, ok := mediaStore.(*media.LocalStore); ok {
		deps.UploadDir = local.Dir()
	}

	e := httpserver.New(cfg, logger)
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", srv.Addr, "driver", cfg.DBDriver, "s3", cfg.UseS3(), "search", index != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := closeStore(ctx); err != nil {
		logger.Error("db_close_error", "error", err)
	}
	if err := pub.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}

func openStore(ctx context.Context, cfg config.Config) (repo.Store, func(context.Context) error, error) {
	if cfg.DBDriver == config.DriverMongo {
		client, mdb, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		r := repo.NewMongoRepo(mdb)
		if err := r.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return r, closeMongo(client), nil
	}

	gdb, err := db.OpenGorm(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(gdb); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repo.NewGormRepo(gdb), closeGorm(gdb), nil
}

func closeMongo(client *mongo.Client) func(context.Context) error {
	return client.Disconnect
}

func closeGorm(gdb *gorm.DB) func(context.Context) error {
	return func(context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}
