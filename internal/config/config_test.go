package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlinks/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.PublicBase)
	assert.Equal(t, config.StoreFile, cfg.StoreBackend)
	assert.Equal(t, "data/users.json", cfg.DataFile)
	assert.Equal(t, config.SessionAuto, cfg.SessionBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, config.AvatarLocal, cfg.AvatarStorage)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, 10*1024*1024, cfg.BodyLimit())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("PUBLIC_BASE", "https://links.example.com/")
	t.Setenv("AVATAR_STORAGE", "s3")
	t.Setenv("S3_BUCKET", "avatars")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, config.StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://links.example.com", cfg.PublicBase)
	assert.Equal(t, "avatars", cfg.S3.Bucket)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown store", env: map[string]string{"STORE_BACKEND": "mongo"}, want: "STORE_BACKEND"},
		{name: "postgres without dsn", env: map[string]string{"STORE_BACKEND": "postgres"}, want: "DATABASE_DSN"},
		{name: "jwt without secret", env: map[string]string{"SESSION_BACKEND": "jwt"}, want: "JWT_SECRET"},
		{name: "sql sessions on file store", env: map[string]string{"SESSION_BACKEND": "sql"}, want: "sql sessions"},
		{name: "s3 without bucket", env: map[string]string{"AVATAR_STORAGE": "s3"}, want: "S3_BUCKET"},
		{name: "unknown avatar storage", env: map[string]string{"AVATAR_STORAGE": "ftp"}, want: "AVATAR_STORAGE"},
		{name: "zero ttl", env: map[string]string{"SESSION_TTL": "0s"}, want: "SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(viper.New())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolvedSessionBackend(t *testing.T) {
	cfg := &config.Config{SessionBackend: config.SessionAuto}
	assert.Equal(t, config.SessionRedis, cfg.ResolvedSessionBackend(config.StoreRedis))
	assert.Equal(t, config.SessionSQL, cfg.ResolvedSessionBackend(config.StorePostgres))
	assert.Equal(t, config.SessionSQL, cfg.ResolvedSessionBackend(config.StoreSQLite))
	assert.Equal(t, config.SessionMemory, cfg.ResolvedSessionBackend(config.StoreFile))

	cfg.SessionBackend = config.SessionJWT
	assert.Equal(t, config.SessionJWT, cfg.ResolvedSessionBackend(config.StoreRedis))
}
