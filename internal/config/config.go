// Package config loads intheflow settings from a YAML file, .env files and
// environment variables, in increasing order of precedence.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/intheflow/internal/logging"
	"github.com/aretw0/intheflow/pkg/adapters/gemini"
	"github.com/aretw0/intheflow/pkg/domain"
	"github.com/aretw0/intheflow/pkg/geometry"
	"github.com/aretw0/intheflow/pkg/graph"
	"github.com/aretw0/intheflow/pkg/persistence/middleware"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "intheflow.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Environment overrides.
const (
	EnvStore         = "INTHEFLOW_STORE"
	EnvRedisAddr     = "INTHEFLOW_REDIS_ADDR"
	EnvAddr          = "INTHEFLOW_ADDR"
	EnvEncryptionKey = "INTHEFLOW_ENCRYPTION_KEY"
	EnvLogLevel      = "INTHEFLOW_LOG_LEVEL"
	EnvLogFormat     = "INTHEFLOW_LOG_FORMAT"
	EnvGeminiBaseURL = "GEMINI_API_BASE_URL"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	LogFormat  string     `yaml:"log_format" validate:"oneof=text json"`
	Canvas     Canvas     `yaml:"canvas"`
	Server     Server     `yaml:"server"`
	Store      Store      `yaml:"store"`
	Generator  Generator  `yaml:"generator"`
	Encryption Encryption `yaml:"encryption"`
	EnvFiles   []string   `yaml:"env_files"`
}

// Canvas holds editor geometry.
type Canvas struct {
	// Offset is the screen position of the canvas origin (the sidebar width).
	Offset    domain.Point    `yaml:"offset"`
	Placement graph.Placement `yaml:"placement"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr        string   `yaml:"addr" validate:"required"`
	MetricsAddr string   `yaml:"metrics_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Store configures canvas checkpoints.
type Store struct {
	Driver   string        `yaml:"driver" validate:"oneof=memory file redis"`
	Path     string        `yaml:"path" validate:"required_if=Driver file"`
	Format   string        `yaml:"format" validate:"oneof=json yaml"`
	Autosave bool          `yaml:"autosave"`
	LockTTL  time.Duration `yaml:"lock_ttl" validate:"gte=0"`
	// Schedule is a cron expression for periodic checkpoints of every open
	// session. Empty disables it.
	Schedule string `yaml:"checkpoint_schedule"`
	Redis    Redis  `yaml:"redis"`
	// Volatile lists output patterns never written to the store.
	Volatile []string `yaml:"volatile_outputs"`
}

// Redis configures the redis driver.
type Redis struct {
	Addr   string        `yaml:"addr" validate:"required"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl" validate:"gte=0"`
}

// Generator configures the Gemini backend.
type Generator struct {
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	Models       gemini.Models `yaml:"models"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
	Breaker      Breaker       `yaml:"breaker"`
}

// Breaker trips generation after consecutive backend failures. MaxFailures
// zero disables it.
type Breaker struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Encryption holds base64 encoded AES-256 keys. An empty Key disables
// encryption at rest.
type Encryption struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: logging.FormatText,
		Canvas: Canvas{
			Offset:    geometry.DefaultOffset,
			Placement: graph.DefaultPlacement,
		},
		Server: Server{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Store: Store{
			Driver:   DriverMemory,
			Path:     ".intheflow/canvases",
			Format:   "json",
			LockTTL:  30 * time.Second,
			Volatile: []string{`^blob:`},
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "intheflow:canvas:",
			},
		},
		Generator: Generator{
			BaseURL:      gemini.DefaultBaseURL,
			Models:       gemini.DefaultModels(),
			PollInterval: gemini.DefaultPollInterval,
			Breaker: Breaker{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
			},
		},
		EnvFiles: []string{".env"},
	}
}

// Load reads path over the defaults, then applies .env files and environment
// overrides. A missing file at DefaultPath is not an error; a missing file
// that was asked for explicitly is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	// Existing variables win over .env values.
	for _, f := range cfg.EnvFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Store.Driver, EnvStore)
	set(&c.Store.Redis.Addr, EnvRedisAddr)
	set(&c.Server.Addr, EnvAddr)
	set(&c.Encryption.Key, EnvEncryptionKey)
	set(&c.LogLevel, EnvLogLevel)
	set(&c.LogFormat, EnvLogFormat)
	set(&c.Generator.BaseURL, EnvGeminiBaseURL)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the values a typo would otherwise surface only at runtime.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	if c.Store.Schedule != "" {
		if _, err := cron.ParseStandard(c.Store.Schedule); err != nil {
			return fmt.Errorf("%w: checkpoint_schedule: %v", ErrInvalid, err)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s (got %q)", field, e.Param(), e.Value()))
		case "required", "required_if":
			msgs = append(msgs, field+" is required")
		case "gt", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	return l, nil
}

// EncryptionKeys decodes the configured keys. ok is false when encryption is
// disabled.
func (c Config) EncryptionKeys() (cfg middleware.EncryptionConfig, ok bool, err error) {
	if c.Encryption.Key == "" {
		return cfg, false, nil
	}
	if cfg.ActiveKey, err = decodeKey(c.Encryption.Key); err != nil {
		return cfg, false, err
	}
	for _, k := range c.Encryption.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return cfg, false, err
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, true, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not base64: %v", ErrInvalid, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, middleware.ErrInvalidKey)
	}
	return key, nil
}
