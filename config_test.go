/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleconfig

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-appkit/config"
)

const yamlTestConfig = `
enabled: true
settings:
  ttl: 60
  limit: 100
storage: redis
redis:
  host: 127.0.0.1
  port: 6379
  username: throttler
  password: secret
  database: 1
  tlsEnabled: true
  keyPrefix: "rl:"
  dialTimeout: 5s
  readTimeout: 250ms
`

const jsonTestConfig = `
{
  "enabled": true,
  "settings": {
    "ttl": 60,
    "limit": 100
  },
  "storage": "redis",
  "redis": {
    "host": "127.0.0.1",
    "port": 6379,
    "username": "throttler",
    "password": "secret",
    "database": 1,
    "tlsEnabled": true,
    "keyPrefix": "rl:",
    "dialTimeout": "5s",
    "readTimeout": "250ms"
  }
}
`

func requireTestConfig(t *testing.T, cfg *Config) {
	t.Helper()

	require.Equal(t, Options{
		Enabled:  true,
		Settings: Settings{TTL: TTLValue(time.Minute), Limit: 100},
		Storage:  StorageTypeRedis,
		Redis: RedisConfig{
			Host:        "127.0.0.1",
			Port:        6379,
			Username:    "throttler",
			Password:    "secret",
			Database:    1,
			TLSEnabled:  true,
			KeyPrefix:   "rl:",
			DialTimeout: config.TimeDuration(time.Second * 5),
			ReadTimeout: config.TimeDuration(time.Millisecond * 250),
		},
	}, cfg.Options)
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData:     yamlTestConfig,
		},
		{
			name:        "json config",
			cfgDataType: config.DataTypeJSON,
			cfgData:     jsonTestConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg *Config

			// Load config using config.Loader.
			cfg = NewConfig()
			cfgLoader := config.NewLoader(config.NewViperAdapter())
			err := cfgLoader.LoadFromReader(bytes.NewBuffer([]byte(tt.cfgData)), tt.cfgDataType, cfg)
			require.NoError(t, err)
			requireTestConfig(t, cfg)

			// Load config using viper unmarshal.
			cfg = NewConfig()
			vpr := viper.New()
			vpr.SetConfigType(string(tt.cfgDataType))
			require.NoError(t, vpr.ReadConfig(bytes.NewBuffer([]byte(tt.cfgData))))
			require.NoError(t, vpr.Unmarshal(&cfg, func(decoderConfig *mapstructure.DecoderConfig) {
				decoderConfig.DecodeHook = MapstructureDecodeHook()
			}))
			requireTestConfig(t, cfg)

			// Load config using yaml/json unmarshal.
			cfg = NewConfig()
			switch tt.cfgDataType {
			case config.DataTypeYAML:
				require.NoError(t, yaml.Unmarshal([]byte(tt.cfgData), &cfg))
				requireTestConfig(t, cfg)
			case config.DataTypeJSON:
				require.NoError(t, json.Unmarshal([]byte(tt.cfgData), &cfg))
				requireTestConfig(t, cfg)
			default:
				t.Fatalf("unsupported config data type: %s", tt.cfgDataType)
			}
		})
	}
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfgData := `
limiter:
  settings:
    ttl: 1m
    limit: 10
`
	cfg := NewConfig(WithKeyPrefix("limiter"))
	cfgLoader := config.NewLoader(config.NewViperAdapter())
	err := cfgLoader.LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, "limiter", cfg.KeyPrefix())
	require.Equal(t, Settings{TTL: TTLValue(time.Minute), Limit: 10}, cfg.Settings)
}

func TestConfigDefaultEnabled(t *testing.T) {
	cfgData := `
settings:
  ttl: 30s
  limit: 5
`
	cfg := NewConfig()
	cfgLoader := config.NewLoader(config.NewViperAdapter())
	err := cfgLoader.LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, StorageTypeDefault, cfg.Storage)
}

func TestConfig_Set_WithErrors(t *testing.T) {
	tests := []struct {
		Name             string
		CfgData          string
		WantErrStr       string
		WantErrStrSuffix string
	}{
		{
			Name: "invalid limit",
			CfgData: `
settings:
  ttl: 60
  limit: 0
`,
			WantErrStr: `invalid throttling options: settings.limit: limit should be >= 1, got 0`,
		},
		{
			Name: "negative limit",
			CfgData: `
settings:
  ttl: 60
  limit: -3
`,
			WantErrStr: `invalid throttling options: settings.limit: limit should be >= 1, got -3`,
		},
		{
			Name: "missing ttl",
			CfgData: `
settings:
  limit: 100
`,
			WantErrStr: `invalid throttling options: settings.ttl: time to live should be positive, got 0s`,
		},
		{
			Name: "negative ttl",
			CfgData: `
settings:
  ttl: -5
  limit: 100
`,
			WantErrStrSuffix: `negative value is not allowed: -5`,
		},
		{
			Name: "invalid ttl format",
			CfgData: `
settings:
  ttl: 1x
  limit: 100
`,
			WantErrStrSuffix: `in duration "1x"`,
		},
		{
			Name: "unknown storage type",
			CfgData: `
settings:
  ttl: 60
  limit: 100
storage: memcached
`,
			WantErrStr: `invalid throttling options: storage: unknown storage type "memcached"`,
		},
		{
			Name: "disabled throttling is validated anyway",
			CfgData: `
enabled: false
settings:
  ttl: 60
  limit: 0
`,
			WantErrStr: `invalid throttling options: settings.limit: limit should be >= 1, got 0`,
		},
	}
	configLoader := config.NewLoader(config.NewViperAdapter())
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			cfg := NewConfig()
			err := configLoader.LoadFromReader(bytes.NewReader([]byte(tt.CfgData)), config.DataTypeYAML, cfg)
			if tt.WantErrStr != "" {
				require.EqualError(t, err, tt.WantErrStr)
			} else {
				require.Error(t, err)
				require.True(t, strings.HasSuffix(err.Error(), tt.WantErrStrSuffix),
					"want error with suffix %q, got %q", tt.WantErrStrSuffix, err.Error())
			}
		})
	}
}

func TestTTLValueUnmarshal(t *testing.T) {
	tests := []struct {
		Name    string
		Data    string
		WantTTL TTLValue
	}{
		{Name: "integer means seconds", Data: `ttl: 60`, WantTTL: TTLValue(time.Minute)},
		{Name: "duration string", Data: `ttl: 1h30m`, WantTTL: TTLValue(time.Hour + time.Minute*30)},
		{Name: "duration string with seconds", Data: `ttl: 45s`, WantTTL: TTLValue(time.Second * 45)},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			var v struct {
				TTL TTLValue `yaml:"ttl" json:"ttl"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tt.Data), &v))
			require.Equal(t, tt.WantTTL, v.TTL)

			jsonData, err := json.Marshal(map[string]interface{}{"ttl": strings.TrimSpace(strings.TrimPrefix(tt.Data, "ttl:"))})
			require.NoError(t, err)
			v.TTL = 0
			require.NoError(t, json.Unmarshal(jsonData, &v))
			require.Equal(t, tt.WantTTL, v.TTL)
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{
		Enabled:  true,
		Settings: Settings{TTL: TTLValue(time.Minute), Limit: 100},
		Storage:  StorageTypeInMemory,
	}
	require.NoError(t, opts.Validate())

	opts.Storage = StorageType("bolt")
	var invalidErr *InvalidOptionsError
	err := opts.Validate()
	require.Error(t, err)
	require.ErrorAs(t, err, &invalidErr)
	require.Equal(t, "storage", invalidErr.Field)
}
