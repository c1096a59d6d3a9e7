// File: internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional yaml file plus environment
// variables. The auth secrets and token lifetimes come from the environment
// names the deployment already uses; a missing or non-numeric value is a
// startup error, never a default.
func Load() (*Config, error) {
	// Best effort; the environment usually comes from the orchestrator.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyRequiredEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "smartify_auth")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.srp_session_ttl", "5m")
	v.SetDefault("mfa.totp_issuer_name", "Smartify")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// applyRequiredEnv binds the legacy environment names for the signing key,
// encryption key and token lifetimes, and rejects missing or malformed
// values.
func applyRequiredEnv(cfg *Config) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	cfg.Auth.SigningSecret = secret

	encKey := os.Getenv("JWT_ENCRYPTION_KEY")
	if encKey == "" {
		return fmt.Errorf("JWT_ENCRYPTION_KEY is required")
	}
	cfg.Auth.EncryptionKeyHex = encKey

	var err error
	if cfg.Auth.AccessTokenTTL, err = requiredSeconds("AUTH_TOKEN_ACCESS_EXPIRY_SECONDS"); err != nil {
		return err
	}
	if cfg.Auth.RefreshTokenTTL, err = requiredSeconds("AUTH_TOKEN_REFRESH_EXPIRY_SECONDS"); err != nil {
		return err
	}
	if cfg.Auth.MFATokenTTL, err = requiredSeconds("AUTH_TOKEN_MFA_EXPIRY_SECONDS"); err != nil {
		return err
	}

	return nil
}

func requiredSeconds(name string) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return time.Duration(secs) * time.Second, nil
}
