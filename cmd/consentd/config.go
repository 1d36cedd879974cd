package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds every consentd setting. Values come from the environment
// (optionally seeded from a .env file) and are overridden by flags.
type Config struct {
	Addr      string `env:"CONSENTD_ADDR,default=:8080" validate:"required,hostname_port"`
	PublicURL string `env:"CONSENTD_PUBLIC_URL,default=http://localhost:8080/rpc" validate:"required,http_url"`

	LogLevel  string `env:"CONSENTD_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"CONSENTD_LOG_FORMAT,default=text" validate:"oneof=text json"`

	Cache     string        `env:"CONSENTD_CACHE,default=memory" validate:"oneof=none memory redis"`
	CacheSize int           `env:"CONSENTD_CACHE_SIZE,default=1024" validate:"gt=0"`
	CacheTTL  time.Duration `env:"CONSENTD_CACHE_TTL,default=10m" validate:"gte=0"`
	RedisAddr string        `env:"REDIS_ADDR,default=localhost:6379" validate:"required_if=Cache redis"`

	// Bearer authentication is enabled when AuthIssuer is set.
	AuthIssuer    string   `env:"CONSENTD_AUTH_ISSUER" validate:"omitempty,http_url"`
	AuthJWKSURL   string   `env:"CONSENTD_AUTH_JWKS_URL" validate:"omitempty,http_url"`
	AuthAudiences []string `env:"CONSENTD_AUTH_AUDIENCES"`
	AuthScopes    []string `env:"CONSENTD_AUTH_SCOPES"`
	AuthAnyScope  bool     `env:"CONSENTD_AUTH_ANY_SCOPE,default=false"`
	AuthRealm     string   `env:"CONSENTD_AUTH_REALM"`

	MaxBodyBytes    int64         `env:"CONSENTD_MAX_BODY_BYTES,default=1048576" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"CONSENTD_SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

// loadConfig reads envFile when it exists, decodes the environment and
// applies any flags the user set explicitly.
func loadConfig(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if flags != nil {
		if err := applyFlags(&cfg, flags); err != nil {
			return nil, err
		}
	}
	if len(cfg.AuthAudiences) == 0 && cfg.AuthIssuer != "" {
		cfg.AuthAudiences = []string{cfg.PublicURL}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFlags copies explicitly set flags over the environment values.
func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	set := func(name string, fn func() error) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			err = fn()
		}
	}
	set("addr", func() (e error) { cfg.Addr, e = flags.GetString("addr"); return })
	set("public-url", func() (e error) { cfg.PublicURL, e = flags.GetString("public-url"); return })
	set("log-level", func() (e error) { cfg.LogLevel, e = flags.GetString("log-level"); return })
	set("log-format", func() (e error) { cfg.LogFormat, e = flags.GetString("log-format"); return })
	set("cache", func() (e error) { cfg.Cache, e = flags.GetString("cache"); return })
	set("cache-size", func() (e error) { cfg.CacheSize, e = flags.GetInt("cache-size"); return })
	set("cache-ttl", func() (e error) { cfg.CacheTTL, e = flags.GetDuration("cache-ttl"); return })
	set("redis-addr", func() (e error) { cfg.RedisAddr, e = flags.GetString("redis-addr"); return })
	set("auth-issuer", func() (e error) { cfg.AuthIssuer, e = flags.GetString("auth-issuer"); return })
	set("auth-jwks-url", func() (e error) { cfg.AuthJWKSURL, e = flags.GetString("auth-jwks-url"); return })
	set("auth-audience", func() (e error) { cfg.AuthAudiences, e = flags.GetStringSlice("auth-audience"); return })
	set("auth-scope", func() (e error) { cfg.AuthScopes, e = flags.GetStringSlice("auth-scope"); return })
	set("auth-any-scope", func() (e error) { cfg.AuthAnyScope, e = flags.GetBool("auth-any-scope"); return })
	set("auth-realm", func() (e error) { cfg.AuthRealm, e = flags.GetString("auth-realm"); return })
	set("max-body-bytes", func() (e error) { cfg.MaxBodyBytes, e = flags.GetInt64("max-body-bytes"); return })
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their environment variable name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("env"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		if cfg.AuthJWKSURL != "" && cfg.AuthIssuer == "" {
			sl.ReportError(cfg.AuthIssuer, "CONSENTD_AUTH_ISSUER", "AuthIssuer", "required_with_jwks", "")
		}
		if len(cfg.AuthScopes) > 0 && cfg.AuthIssuer == "" {
			sl.ReportError(cfg.AuthIssuer, "CONSENTD_AUTH_ISSUER", "AuthIssuer", "required_with_scopes", "")
		}
	}, Config{})
	return v
}

// Validate checks the configuration and lists every offending setting.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_with_jwks":
		return fmt.Sprintf("%s is required when a JWKS URL is set", fe.Field())
	case "required_with_scopes":
		return fmt.Sprintf("%s is required when scopes are set", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
	}
}

// AuthEnabled reports whether bearer authentication is configured.
func (c *Config) AuthEnabled() bool { return c.AuthIssuer != "" }

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
