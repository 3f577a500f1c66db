package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides: seed.store.driver is read
// from SEEDOTP_SEED_STORE_DRIVER.
const EnvPrefix = "SEEDOTP"

// ErrConfigType is returned when NewViperFromBytes is called without a format.
var ErrConfigType = errors.New("config: config type is required")

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// Option customises the underlying viper instance before it reads its source.
type Option func(v *viper.Viper)

// WithDefaults registers fallback values for keys absent from the source.
func WithDefaults(defaults map[string]any) Option {
	return func(v *viper.Viper) {
		for key, value := range defaults {
			v.SetDefault(key, value)
		}
	}
}

// WithEnv lets environment variables named EnvPrefix_<KEY> override the source.
func WithEnv() Option {
	return func(v *viper.Viper) {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
}

// NewViper loads configuration from the given file path and watches it for
// changes. The file type is inferred from the extension.
func NewViper(pathFile string, opts ...Option) (*Viper, error) {
	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}

	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(strings.TrimSuffix(filename, path.Ext(filename)))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "op", e.Op.String(), "error", err)
			return
		}
		slog.Info("config reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory. configType is a format
// supported by viper ("yaml", "json", "toml", ...).
func NewViperFromBytes(configType string, data []byte, opts ...Option) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, ErrConfigType
	}

	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

// GetBool returns the value for key as bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetInt returns the value for key as int.
func (vc *Viper) GetInt(key string) int {
	return vc.v.GetInt(key)
}

// GetUint returns the value for key as uint.
func (vc *Viper) GetUint(key string) uint {
	return vc.v.GetUint(key)
}

// GetSecond returns the value for key as seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetBinary returns the value for key decoded from base64.
func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}

	return data
}

// GetArray returns the value for key as a list. A YAML sequence is used as is;
// a scalar is split by commas. Items are trimmed and blanks dropped.
func (vc *Viper) GetArray(key string) []string {
	var parts []string
	if _, ok := vc.v.Get(key).([]any); ok {
		parts = vc.v.GetStringSlice(key)
	} else {
		parts = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(parts, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// GetMap returns the value for key parsed from "k:v,k:v" pairs.
func (vc *Viper) GetMap(key string) map[string]string {
	m := make(map[string]string)
	for _, pair := range vc.GetArray(key) {
		if k, v, ok := strings.Cut(pair, ":"); ok {
			m[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	return m
}

// Close implements io.Closer. The file watcher lives for the process lifetime.
func (vc *Viper) Close() error {
	return nil
}
