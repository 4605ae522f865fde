package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, []string{"*"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, StoreDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, TokenStrategyJWT, cfg.Auth.TokenStrategy)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, PasswordHasherBcrypt, cfg.Auth.PasswordHasher)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "uploads/images", cfg.Uploads.Dir)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TOKEN_STRATEGY", "paseto")
	t.Setenv("PASETO_KEY", testSecret)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("TRUSTED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TokenStrategyPaseto, cfg.Auth.TokenStrategy)
	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.TrustedOrigins)
	assert.False(t, cfg.Server.IsDevelopment())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "short jwt secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "bad paseto key",
			env:     map[string]string{"TOKEN_STRATEGY": "paseto", "PASETO_KEY": "short"},
			wantErr: "PASETO_KEY",
		},
		{
			name:    "unknown store",
			env:     map[string]string{"JWT_SECRET": testSecret, "STORE_DRIVER": "cassandra"},
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "unknown hasher",
			env:     map[string]string{"JWT_SECRET": testSecret, "PASSWORD_HASHER": "md5"},
			wantErr: "PASSWORD_HASHER",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"JWT_SECRET": testSecret, "UPLOAD_BACKEND": "s3"},
			wantErr: "S3_BUCKET",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.wantErr), err.Error())
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "accounts", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=accounts sslmode=disable", c.ConnectionString())

	c.ChannelBinding = "require"
	assert.Contains(t, c.ConnectionString(), "channel_binding=require")
}
