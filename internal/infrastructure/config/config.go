// Package config loads the engine's configuration the way the teacher
// repo does: viper + godotenv for sourcing, mapstructure tags for binding.
// Trimmed to the options spec §6.4 recognizes, plus environment, log level
// and database connection-pool settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds the connection parameters NewConnection consumes.
type DatabaseConfig struct {
	URL             string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	MaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`
}

// Config is the full set of options recognized by spec §6.4. Authentication
// configuration (token signing, password policy) belongs to the external
// HTTP layer and is intentionally absent here.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Database DatabaseConfig `mapstructure:",squash"`

	AdminEmail               string        `mapstructure:"admin_email"`
	AdminPassword            string        `mapstructure:"admin_password"`
	AccessTokenExpireMinutes int           `mapstructure:"access_token_expire_minutes"`
	KYCDocumentUploadDir     string        `mapstructure:"kyc_document_upload_dir"`
	MaxFileSize              int64         `mapstructure:"max_file_size"`
	AllowedFileExtensions    []string      `mapstructure:"allowed_file_extensions"`
	ReconciliationInterval   time.Duration `mapstructure:"reconciliation_interval"`
}

// Load reads configuration from the environment (optionally seeded by a
// .env file) following the teacher's viper/godotenv bootstrap.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("access_token_expire_minutes", 60)
	v.SetDefault("kyc_document_upload_dir", "./data/kyc")
	v.SetDefault("max_file_size", int64(10<<20))
	v.SetDefault("allowed_file_extensions", []string{".png", ".jpg", ".jpeg", ".pdf"})
	v.SetDefault("reconciliation_interval", 15*time.Minute)
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", 300)

	bind := func(keys ...string) {
		for _, k := range keys {
			_ = v.BindEnv(k, strings.ToUpper(k))
		}
	}
	bind("database_url", "admin_email", "admin_password",
		"access_token_expire_minutes", "kyc_document_upload_dir", "max_file_size",
		"allowed_file_extensions", "reconciliation_interval", "environment", "log_level",
		"db_max_open_conns", "db_max_idle_conns", "db_conn_max_lifetime")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &cfg, nil
}
