// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, STAFFAUTH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/internal/logging"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "STAFFAUTH_"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// HashConfig tunes the argon2id cost. Zero fields use the hasher defaults.
type HashConfig struct {
	MemoryKiB   uint32 `koanf:"memory_kib" json:"memory_kib,omitempty" jsonschema:"minimum=8,description=Argon2id memory cost in KiB"`
	Iterations  uint32 `koanf:"iterations" json:"iterations,omitempty" jsonschema:"minimum=1,description=Argon2id time cost"`
	Parallelism uint8  `koanf:"parallelism" json:"parallelism,omitempty" jsonschema:"minimum=1,maximum=255,description=Argon2id lanes"`
}

// Params converts the configuration to hasher parameters.
func (h HashConfig) Params() auth.Argon2Params {
	return auth.Argon2Params{
		Iterations:  h.Iterations,
		MemoryKiB:   h.MemoryKiB,
		Parallelism: h.Parallelism,
	}
}

// Config is the full service configuration.
type Config struct {
	ListenAddr  string        `koanf:"listen_addr" json:"listen_addr,omitempty" jsonschema:"description=API listen address"`
	MetricsAddr string        `koanf:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"description=Metrics and health listen address; empty disables"`
	Store       string        `koanf:"store" json:"store,omitempty" jsonschema:"enum=postgres,enum=memory"`
	DatabaseURL string        `koanf:"database_url" json:"database_url,omitempty" jsonschema:"description=PostgreSQL connection URL; falls back to DATABASE_URL"`
	SigningKey  string        `koanf:"signing_key" json:"signing_key,omitempty" jsonschema:"minLength=32,description=HMAC key for session tokens"`
	TokenTTL    time.Duration `koanf:"token_ttl" json:"token_ttl,omitempty" jsonschema:"description=Session token lifetime such as 1h"`
	Issuer      string        `koanf:"issuer" json:"issuer,omitempty"`
	LogFormat   string        `koanf:"log_format" json:"log_format,omitempty" jsonschema:"enum=json,enum=text"`
	LogLevel    string        `koanf:"log_level" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	AutoMigrate bool          `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
	Hash        HashConfig    `koanf:"hash" json:"hash,omitempty"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":9100",
		Store:       StorePostgres,
		TokenTTL:    auth.DefaultTokenLifetime,
		Issuer:      "staffauth",
		LogFormat:   "json",
		LogLevel:    "info",
		AutoMigrate: false,
	}
}

func defaultMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"listen_addr":  d.ListenAddr,
		"metrics_addr": d.MetricsAddr,
		"store":        d.Store,
		"token_ttl":    d.TokenTTL,
		"issuer":       d.Issuer,
		"log_format":   d.LogFormat,
		"log_level":    d.LogLevel,
		"auto_migrate": d.AutoMigrate,
	}
}

// RegisterFlags adds the overridable settings to fs. Flag names are the
// config keys with dashes instead of underscores. The signing key has no
// flag so it never shows up in a process listing.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("listen-addr", d.ListenAddr, "API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("store", d.Store, "user store (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply pending migrations on startup")
}

// Load builds the configuration. path may be empty; flags may be nil.
// The result is not validated; call Validate before use.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaultMap() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

// envKey maps STAFFAUTH_HASH_MEMORY_KIB to hash.memory_kib and
// STAFFAUTH_LISTEN_ADDR to listen_addr.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "hash_"); ok {
		return "hash." + rest
	}
	return key
}

// Validate reports the first setting that cannot be used to serve.
func (c *Config) Validate() error {
	if len(c.SigningKey) < auth.MinSigningKeyLen {
		return invalid("signing_key", "must be at least %d bytes", auth.MinSigningKeyLen)
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.ListenAddr == "" {
		return invalid("listen_addr", "is required")
	}
	if c.TokenTTL <= 0 {
		return invalid("token_ttl", "must be positive, got %s", c.TokenTTL)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "must be json or text, got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", "unknown level %q", c.LogLevel)
	}
	return nil
}

// ValidateStore checks only the store settings. Commands that touch the
// store without serving tokens use it instead of Validate.
func (c *Config) ValidateStore() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return invalid("database_url", "is required when store is %s", StorePostgres)
		}
	case StoreMemory:
	default:
		return invalid("store", "must be %s or %s, got %q", StorePostgres, StoreMemory, c.Store)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(field+" "+format, args...)
}
