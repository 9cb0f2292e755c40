package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Parallel()

	cfg := FromEnv(mapEnv(nil))

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, 100, cfg.RateLimit15m)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.False(t, cfg.UseS3())
	assert.False(t, cfg.MailEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Parallel()

	cfg := FromEnv(mapEnv(map[string]string{
		"SERVER_PORT":           "9000",
		"DB_DRIVER":             "Postgres",
		"TOKEN_TTL":             "1h",
		"RESET_TOKEN_TTL":       "bogus",
		"KAFKA_BROKERS":         "k1:9092, ,k2:9092",
		"FRONTEND_URL":          "https://portal.example/",
		"EMAIL_USER":            "mailer@example.com",
		"S3_BUCKET":             "media",
		"AWS_ACCESS_KEY_ID":     "id",
		"AWS_SECRET_ACCESS_KEY": "secret",
	}))

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "https://portal.example", cfg.FrontendURL)
	assert.Equal(t, "mailer@example.com", cfg.EmailFrom)
	assert.Equal(t, "mailer@example.com", cfg.AdminEmail)
	assert.True(t, cfg.UseS3())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			JWTSecret: []byte("0123456789abcdef0123"),
			DBDriver:  DriverMongo,
			MongoURI:  "mongodb://localhost:27017",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = nil }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = []byte("short") }, wantErr: true},
		{name: "mongo without uri", mutate: func(c *Config) { c.MongoURI = "" }, wantErr: true},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.DBDriver = DriverSQLite }, wantErr: true},
		{name: "sqlite with dsn", mutate: func(c *Config) { c.DBDriver = DriverSQLite; c.DatabaseURL = "portal.db" }},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "redis" }, wantErr: true},
		{name: "half admin seed", mutate: func(c *Config) { c.AdminSeedEmail = "a@x.com" }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	require.ErrorIs(t, Config{DBDriver: DriverMongo}.Validate(), ErrMissingSecret)
}
