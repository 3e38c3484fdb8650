// Package config загружает настройки из YAML-файла, переменных окружения YATUBE_* и значений по умолчанию.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "YATUBE"

// Драйверы хранилища.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config - настройки приложения.
type Config struct {
	Storage *Storage
	Log     *Log
	Admin   *Admin
}

// Storage - настройки хранилища.
type Storage struct {
	Driver   string
	DSN      string
	MaxConns int32
}

// Log - настройки логгера.
type Log struct {
	Level  string
	Format string
	SQL    bool
}

// Admin - настройки админки.
type Admin struct {
	EmptyValueDisplay string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.sql", false)
	v.SetDefault("admin.empty_value_display", "-")
}

// Load читает настройки. Пустой path означает поиск config.yaml в текущей
// директории; отсутствие файла в этом случае не ошибка.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Storage: getStorageConfig(v),
		Log:     getLogConfig(v),
		Admin:   &Admin{EmptyValueDisplay: v.GetString("admin.empty_value_display")},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getStorageConfig(v *viper.Viper) *Storage {
	return &Storage{
		Driver:   strings.ToLower(v.GetString("storage.driver")),
		DSN:      v.GetString("storage.dsn"),
		MaxConns: v.GetInt32("storage.max_conns"),
	}
}

func getLogConfig(v *viper.Viper) *Log {
	return &Log{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		SQL:    v.GetBool("log.sql"),
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.MaxConns < 1 {
		return fmt.Errorf("storage.max_conns must be positive, got %d", c.Storage.MaxConns)
	}
	return nil
}
