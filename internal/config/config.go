// File: internal/config/config.go
package config

import "time"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	MFA      MFAConfig      `mapstructure:"mfa"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	// MigrationsPath is the directory holding the *.sql migration files,
	// relative to the working directory.
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig is the token subsystem configuration. SigningSecret and
// EncryptionKeyHex plus the three lifetimes are required; Load fails fast
// when any is absent or non-numeric.
type AuthConfig struct {
	SigningSecret    string        `mapstructure:"signing_secret"`
	EncryptionKeyHex string        `mapstructure:"encryption_key"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
	MFATokenTTL      time.Duration `mapstructure:"mfa_token_ttl"`
	SRPSessionTTL    time.Duration `mapstructure:"srp_session_ttl"`
}

type MFAConfig struct {
	TOTPIssuerName string `mapstructure:"totp_issuer_name"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
