/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-appkit/config"
)

// StorageType is a type of the storage backend that tracks per-key request counts.
type StorageType string

// Supported storage types.
const (
	StorageTypeDefault  StorageType = ""
	StorageTypeInMemory StorageType = "in_memory"
	StorageTypeRedis    StorageType = "redis"
)

// Validate checks that the storage type is one of the supported values.
func (st StorageType) Validate() error {
	switch st {
	case StorageTypeDefault, StorageTypeInMemory, StorageTypeRedis:
		return nil
	}
	return fmt.Errorf("unknown storage type %q", string(st))
}

// Settings represents request-limit settings: how many requests (Limit)
// are allowed within the time-to-live window (TTL).
type Settings struct {
	// TTL is the time-to-live window over which the limit is measured.
	TTL TTLValue `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// Limit is the maximum number of requests allowed within the TTL window.
	Limit int `mapstructure:"limit" yaml:"limit" json:"limit"`
}

// Validate validates request-limit settings.
func (s *Settings) Validate() error {
	if time.Duration(s.TTL) <= 0 {
		return &InvalidOptionsError{
			Field: "ttl", Inner: fmt.Errorf("time to live should be positive, got %s", s.TTL)}
	}
	if s.Limit < 1 {
		return &InvalidOptionsError{
			Field: "limit", Inner: fmt.Errorf("limit should be >= 1, got %d", s.Limit)}
	}
	return nil
}

// RedisConfig represents connection parameters for the Redis storage backend.
// The parameters are not validated here beyond their shape:
// checking them is the responsibility of the Redis client that consumes the resolved Options.
type RedisConfig struct {
	Host        string              `mapstructure:"host" yaml:"host" json:"host"`
	Port        int                 `mapstructure:"port" yaml:"port" json:"port"`
	Username    string              `mapstructure:"username" yaml:"username" json:"username"`
	Password    string              `mapstructure:"password" yaml:"password" json:"password"`
	Database    int                 `mapstructure:"database" yaml:"database" json:"database"`
	TLSEnabled  bool                `mapstructure:"tlsEnabled" yaml:"tlsEnabled" json:"tlsEnabled"`
	KeyPrefix   string              `mapstructure:"keyPrefix" yaml:"keyPrefix" json:"keyPrefix"`
	DialTimeout config.TimeDuration `mapstructure:"dialTimeout" yaml:"dialTimeout" json:"dialTimeout"`
	ReadTimeout config.TimeDuration `mapstructure:"readTimeout" yaml:"readTimeout" json:"readTimeout"`
}

// Options represents the resolved, concrete throttling configuration.
// It is treated as immutable after resolution; runtime reconfiguration should be done
// by producing a new Options and swapping the active one atomically (see OptionsHolder).
type Options struct {
	// Enabled specifies whether throttling is active.
	// Disabled throttling does not relax validation: Settings must be well-formed anyway.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Settings contains request-limit settings.
	Settings Settings `mapstructure:"settings" yaml:"settings" json:"settings"`

	// Storage selects the backend that will track request counts.
	// The empty value selects the default in-memory storage.
	Storage StorageType `mapstructure:"storage" yaml:"storage" json:"storage"`

	// Redis contains connection parameters for the Redis storage backend.
	// It is ignored (but allowed to be present) when Storage selects the in-memory backend.
	Redis RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
}

// Validate validates the options.
func (o *Options) Validate() error {
	if err := o.Settings.Validate(); err != nil {
		var invalidErr *InvalidOptionsError
		if errors.As(err, &invalidErr) {
			return &InvalidOptionsError{Field: "settings." + invalidErr.Field, Inner: invalidErr.Inner}
		}
		return err
	}
	if err := o.Storage.Validate(); err != nil {
		return &InvalidOptionsError{Field: "storage", Inner: err}
	}
	return nil
}

// Config represents a configuration for the throttling subsystem.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Options `mapstructure:",squash" yaml:",inline"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	var opts configOptions
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the throttling subsystem in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault("enabled", true)
}

// Set sets throttling configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	if err := dp.Unmarshal(c, func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.DecodeHook = MapstructureDecodeHook()
	}); err != nil {
		return err
	}
	return c.Validate()
}

// TTLValue represents a time-to-live window that can be parsed from JSON and YAML.
// This type is intended to be used in configuration structures
// and allows parsing both integers (seconds) and human-readable strings (e.g. "30s", "1m").
type TTLValue time.Duration

// UnmarshalJSON allows decoding from both integers (seconds) and human-readable strings.
// Implements json.Unmarshaler interface.
func (d *TTLValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if num, err := strconv.ParseInt(s, 10, 64); err == nil {
		if num < 0 {
			return fmt.Errorf("negative value is not allowed: %d", num)
		}
		*d = TTLValue(time.Duration(num) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid time to live format (%s): %w", s, err)
	}
	*d = TTLValue(dur)
	return nil
}

// UnmarshalYAML allows decoding from both integers (seconds) and human-readable strings.
// Implements yaml.Unmarshaler interface.
func (d *TTLValue) UnmarshalYAML(value *yaml.Node) error {
	var num int64
	if err := value.Decode(&num); err == nil {
		if num < 0 {
			return fmt.Errorf("negative value is not allowed: %d", num)
		}
		*d = TTLValue(time.Duration(num) * time.Second)
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err == nil {
		dur, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return fmt.Errorf("invalid time to live format (%s): %w", raw, parseErr)
		}
		*d = TTLValue(dur)
		return nil
	}
	return fmt.Errorf("invalid time to live format: %v", value)
}

// UnmarshalText allows decoding from text.
// Implements encoding.TextUnmarshaler interface, which is used by mapstructure.TextUnmarshallerHookFunc.
func (d *TTLValue) UnmarshalText(text []byte) error {
	return d.UnmarshalJSON(text)
}

// String returns the human-readable string representation.
// Implements fmt.Stringer interface.
func (d TTLValue) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes as a human-readable string in JSON.
// Implements json.Marshaler interface.
func (d TTLValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML encodes as a human-readable string in YAML.
// Implements yaml.Marshaler interface.
func (d TTLValue) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// MarshalText encodes as a human-readable string in text.
// Implements encoding.TextMarshaler interface.
func (d TTLValue) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func mapstructureTTLValueHookFunc() mapstructure.DecodeHookFunc {
	ttlType := reflect.TypeOf(TTLValue(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != ttlType || f == ttlType {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			num, err := cast.ToInt64E(data)
			if err != nil {
				return nil, err
			}
			if num < 0 {
				return nil, fmt.Errorf("negative value is not allowed: %d", num)
			}
			return TTLValue(time.Duration(num) * time.Second), nil
		}
		return data, nil
	}
}

// MapstructureDecodeHook returns a DecodeHookFunc for mapstructure to handle custom types.
func MapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructureTTLValueHookFunc(),
	)
}
