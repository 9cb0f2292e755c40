package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const minSecretLen = 16

var ErrMissingSecret = errors.New("JWT_SECRET is not set")

// Config is built once at startup and handed to constructors. Nothing below
// main reads the environment.
type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	JWTSecret     []byte
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration

	DBDriver      string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	UploadDir      string
	MaxUploadBytes int64

	S3Bucket        string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PublicBaseURL string

	SMTPHost      string
	SMTPPort      int
	EmailUser     string
	EmailPassword string
	EmailFrom     string
	AdminEmail    string
	FrontendURL   string

	AllowedOrigins []string
	RateLimit15m   int

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	AdminSeedEmail    string
	AdminSeedPassword string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv as the source of values.
func FromEnv(getenv func(string) string) Config {
	e := env{getenv: getenv}
	emailUser := getenv("EMAIL_USER")

	return Config{
		ServiceName: e.str("SERVICE_NAME", "magister-portal"),
		ServerPort:  e.int("SERVER_PORT", 8080),
		LogLevel:    e.str("LOG_LEVEL", "info"),

		JWTSecret:     []byte(getenv("JWT_SECRET")),
		TokenTTL:      e.duration("TOKEN_TTL", 7*24*time.Hour),
		ResetTokenTTL: e.duration("RESET_TOKEN_TTL", time.Hour),

		DBDriver:      strings.ToLower(e.str("DB_DRIVER", DriverMongo)),
		MongoURI:      getenv("MONGODB_URI"),
		MongoDatabase: e.str("MONGODB_DATABASE", "magisterportal"),
		DatabaseURL:   getenv("DATABASE_URL"),

		UploadDir:      e.str("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(e.int("MAX_UPLOAD_BYTES", 25<<20)),

		S3Bucket:        getenv("S3_BUCKET"),
		S3Region:        e.str("AWS_REGION", "us-east-1"),
		S3AccessKey:     getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:     getenv("AWS_SECRET_ACCESS_KEY"),
		S3Endpoint:      getenv("S3_ENDPOINT"),
		S3PublicBaseURL: getenv("S3_PUBLIC_BASE_URL"),

		SMTPHost:      getenv("SMTP_HOST"),
		SMTPPort:      e.int("SMTP_PORT", 587),
		EmailUser:     emailUser,
		EmailPassword: getenv("EMAIL_PASSWORD"),
		EmailFrom:     e.str("EMAIL_FROM", emailUser),
		AdminEmail:    e.str("ADMIN_EMAIL", emailUser),
		FrontendURL:   strings.TrimRight(e.str("FRONTEND_URL", "http://localhost:3000"), "/"),

		AllowedOrigins: CSV(getenv("ALLOWED_ORIGINS")),
		RateLimit15m:   e.int("RATE_LIMIT_PER_15M", 100),

		KafkaBrokers: CSV(getenv("KAFKA_BROKERS")),

		ESURL:      getenv("ES_URL"),
		ESUser:     getenv("ES_USER"),
		ESPassword: getenv("ES_PASSWORD"),
		ESIndex:    e.str("ES_INDEX", "posts"),

		AdminSeedEmail:    getenv("ADMIN_SEED_EMAIL"),
		AdminSeedPassword: getenv("ADMIN_SEED_PASSWORD"),
	}
}

// Validate reports configuration that must stop the process from serving.
func (c Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return ErrMissingSecret
	}
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	switch c.DBDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo driver")
		}
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", c.DBDriver)
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if (c.AdminSeedEmail == "") != (c.AdminSeedPassword == "") {
		return errors.New("ADMIN_SEED_EMAIL and ADMIN_SEED_PASSWORD must be set together")
	}
	return nil
}

// UseS3 mirrors the upload dispatch rule: object storage only when a bucket
// and a full key pair are configured.
func (c Config) UseS3() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.EmailUser != "" && c.EmailPassword != ""
}

type env struct {
	getenv func(string) string
}

func (e env) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e env) int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (e env) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
