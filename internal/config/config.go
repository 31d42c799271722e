// Package config loads the server configuration from defaults, an optional
// YAML file, the environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultSessionSecret signs admin tokens when nothing else is configured.
// Anyone who knows it can forge a token, so serve warns about it.
const DefaultSessionSecret = "dev-secret"

// Config is the root configuration struct
type Config struct {
	Env     string            `mapstructure:"env" validate:"oneof=dev development prod production"`
	S3      services.S3Config `mapstructure:"s3"`
	Admin   AdminConfig       `mapstructure:"admin"`
	Session SessionConfig     `mapstructure:"session"`
	Server  ServerConfig      `mapstructure:"server"`
	Shares  SharesConfig      `mapstructure:"shares"`
	CORS    CORSConfig        `mapstructure:"cors"`
	Log     LogConfig         `mapstructure:"log"`
}

type AdminConfig struct {
	// Password is compared verbatim; empty disables admin login
	Password string        `mapstructure:"password"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type SessionConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// SharesConfig selects where the share registry document lives
type SharesConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=file object"`
	File    string `mapstructure:"file" validate:"required_if=Backend file"`
	Bucket  string `mapstructure:"bucket"`
	Key     string `mapstructure:"key" validate:"required_if=Backend object"`
}

// CORSConfig lists the origins allowed to call the JSON API
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// IsProd reports whether the production log handler should be used
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// UsesDefaultSecret reports whether tokens are signed with the built-in secret
func (c *Config) UsesDefaultSecret() bool {
	return c.Session.Secret == DefaultSessionSecret
}

// envNames maps configuration keys to environment variables. The PROD_
// variant of each variable wins over the plain one.
var envNames = map[string]string{
	"env":                  "ENV",
	"s3.region":            "S3_REGION",
	"s3.bucket":            "S3_BUCKET",
	"s3.endpoint":          "S3_ENDPOINT",
	"s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"s3.path_style":        "S3_PATH_STYLE",
	"admin.password":       "ADMIN_PASSWORD",
	"admin.token_ttl":      "ADMIN_TOKEN_TTL",
	"session.secret":       "SESSION_SECRET",
	"server.port":          "PORT",
	"shares.backend":       "SHARES_BACKEND",
	"shares.file":          "SHARES_FILE",
	"shares.bucket":        "SHARES_BUCKET",
	"shares.key":           "SHARES_KEY",
	"cors.allowed_origins": "CORS_ALLOWED_ORIGINS",
	"log.level":            "LOG_LEVEL",
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":           "server.port",
	"bucket":         "s3.bucket",
	"endpoint":       "s3.endpoint",
	"region":         "s3.region",
	"shares-backend": "shares.backend",
	"shares-file":    "shares.file",
	"log-level":      "log.level",
}

func bindEnv(v *viper.Viper) {
	for key, name := range envNames {
		_ = v.BindEnv(key, "PROD_"+name, name)
	}
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}
		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("s3.region", "fr-par")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.path_style", false)

	v.SetDefault("admin.password", "")
	v.SetDefault("admin.token_ttl", services.DefaultTokenTTL)

	v.SetDefault("session.secret", DefaultSessionSecret)

	v.SetDefault("server.port", 3000)

	v.SetDefault("shares.backend", "file")
	v.SetDefault("shares.file", "data/shares.json")
	v.SetDefault("shares.bucket", "")
	v.SetDefault("shares.key", ".shares/shares.json")

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config file > defaults
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	bindEnv(v)

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDerivedDefaults(&cfg)

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyDerivedDefaults fills settings whose default depends on other settings
func applyDerivedDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.S3.Endpoint) == "" {
		cfg.S3.Endpoint = fmt.Sprintf("https://s3.%s.scw.cloud", cfg.S3.Region)
	}
	if cfg.Shares.Bucket == "" {
		cfg.Shares.Bucket = cfg.S3.Bucket
	}
	if cfg.Admin.TokenTTL == 0 {
		cfg.Admin.TokenTTL = services.DefaultTokenTTL
	}
}
