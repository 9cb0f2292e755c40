package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/magister_portal/internal/authz"
	"github.com/Skotchmaster/magister_portal/internal/config"
	"github.com/Skotchmaster/magister_portal/internal/logging"
	authmw "github.com/Skotchmaster/magister_portal/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/magister_portal/internal/middleware/logging"
)

const rateWindow = 15 * time.Minute

type Deps struct {
	Auth     *AuthHTTP
	Posts    *PostHTTP
	Recovery *RecoveryHTTP
	Contact  *ContactHTTP
	Verifier authmw.Verifier
	// Ready reports whether the backing store answers. Nil means always ready.
	Ready func(ctx context.Context) error
	// UploadDir is served under /uploads when media is kept on local disk.
	UploadDir string
}

// New builds the echo instance with the shared middleware chain.
func New(cfg config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig(cfg.AllowedOrigins)),
		middleware.Gzip(),
	)
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (cfg.MaxUploadBytes+1023)/1024)))
	}
	if cfg.RateLimit15m > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig(cfg.RateLimit15m)))
	}
	return e
}

func corsConfig(origins []string) middleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}
}

// rateLimiterConfig allows perWindow requests per client IP every 15 minutes.
func rateLimiterConfig(perWindow int) middleware.RateLimiterConfig {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perWindow) / rateWindow.Seconds()),
		Burst:     perWindow,
		ExpiresIn: rateWindow,
	})
	return middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health/live" || p == "/health/ready"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, id string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
		},
	}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			logging.FromContext(ctx).Warn("not_ready", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	requireAuth := authmw.RequireAuth(d.Verifier)

	e.POST("/auth/signup", d.Auth.Signup)
	e.POST("/auth/login", d.Auth.Login)

	for _, prefix := range []string{"/recover", "/auth/recover"} {
		e.POST(prefix, d.Recovery.RequestReset)
		e.POST(prefix+"/reset", d.Recovery.ResetPassword)
	}

	e.GET("/posts", d.Posts.ListPosts)
	e.GET("/posts/search", d.Posts.SearchPosts)
	e.POST("/posts", d.Posts.CreatePost, requireAuth, authmw.Allow(authz.CreatePost))
	e.POST("/posts/:id/react", d.Posts.React, requireAuth, authmw.Allow(authz.React))
	e.POST("/posts/:id/comments", d.Posts.Comment, requireAuth, authmw.Allow(authz.Comment))
	e.POST("/posts/:id/comment", d.Posts.Comment, requireAuth, authmw.Allow(authz.Comment))
	e.DELETE("/posts/:id", d.Posts.DeletePost, requireAuth, authmw.Allow(authz.DeletePost))

	e.POST("/contact", d.Contact.Submit)
	e.GET("/contact", d.Contact.List, requireAuth, authmw.Allow(authz.ListContacts))

	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}
}
