package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	AppHost string        `mapstructure:"host"`
}

type ServerConfig struct {
	Addr string     `mapstructure:"addr" validate:"required"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DBConfig struct {
	Driver         string `mapstructure:"driver" validate:"oneof=postgres badger"`
	Source         string `mapstructure:"source" validate:"required_if=Driver postgres"`
	BadgerPath     string `mapstructure:"badger_path"`
	InMemory       bool   `mapstructure:"in_memory"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret" validate:"required,min=16"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type StorageConfig struct {
	Driver string   `mapstructure:"driver" validate:"oneof=local s3"`
	Path   string   `mapstructure:"path" validate:"required_if=Driver local"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configs/settings.yml, or the file at path when given, and lets
// environment variables override any key (db.source -> DB_SOURCE).
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.SetConfigName("settings")
		v.SetConfigType("yml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees env overrides for keys viper already knows.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

var defaults = map[string]interface{}{
	"server.addr":                  ":8080",
	"server.cors.allowed_origins":  []string{"*"},
	"db.driver":                    "postgres",
	"db.source":                    "",
	"db.badger_path":               "./data/badger",
	"db.in_memory":                 false,
	"db.migrate_on_start":          false,
	"jwt.secret":                   "",
	"jwt.ttl":                      "24h",
	"storage.driver":               "local",
	"storage.path":                 "./data/files",
	"storage.s3.bucket":            "",
	"storage.s3.region":            "",
	"storage.s3.endpoint":          "",
	"storage.s3.prefix":            "",
	"storage.s3.access_key_id":     "",
	"storage.s3.secret_access_key": "",
	"logging.level":                "info",
	"logging.format":               "json",
	"host":                         "http://localhost:8080",
}

// ApplyDefaults fills values left empty by the file and environment and
// normalizes case.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}

	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.DB.Driver == "badger" && cfg.DB.BadgerPath == "" && !cfg.DB.InMemory {
		cfg.DB.BadgerPath = "./data/badger"
	}

	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 24 * time.Hour
	}

	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
