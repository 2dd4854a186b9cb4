package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090},
		"security": {"jwt_secret": "from-file", "admin_password_hash": "$2a$10$abc"},
		"reports": {"company_name": "Predial Norte"}
	}`), 0o600))

	t.Setenv("COMPANY_CONTACTS", "(11) 4000-0000; contato@predial.com.br ;")
	t.Setenv("SERVER_WRITE_TIMEOUT", "10m")
	t.Setenv("SCHEDULE_DRIVER", "sqlite")
	t.Setenv("SCHEDULE_DSN", "file::memory:")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "from-file", cfg.Security.JWTSecret)
	assert.Equal(t, "Predial Norte", cfg.Reports.CompanyName)
	assert.Equal(t, []string{"(11) 4000-0000", "contato@predial.com.br"}, cfg.Reports.CompanyContacts)
	assert.Equal(t, "sqlite", cfg.Schedule.Driver)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.GetServerAddr())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing secret", func(c *Config) { c.Security.JWTSecret = "" }, "jwt_secret"},
		{"missing hash", func(c *Config) { c.Security.AdminPasswordHash = "" }, "admin_password_hash"},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }, "archive.bucket"},
		{"postgres without dsn", func(c *Config) { c.Schedule.Driver = "postgres" }, "schedule.dsn"},
		{"unknown driver", func(c *Config) { c.Schedule.Driver = "redis" }, "unknown schedule.driver"},
		{"valid", func(c *Config) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Security.JWTSecret = "secret"
			cfg.Security.AdminPasswordHash = "$2a$10$abc"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := ReportsConfig{MaxUploadMB: 3}
	assert.Equal(t, int64(3<<20), cfg.MaxUploadBytes())
}
