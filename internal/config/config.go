package config

import (
	"strings"
	"time"

	"mergeflow/internal/model"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	MySQL     MySQLConfig           `mapstructure:"mysql"`
	Redis     RedisConfig           `mapstructure:"redis"`
	Etcd      EtcdConfig            `mapstructure:"etcd"`
	Workers   WorkersConfig         `mapstructure:"workers"`
	Stream    StreamConfig          `mapstructure:"stream"`
	Auth      AuthConfig            `mapstructure:"auth"`
	RateLimit RateLimitConfig       `mapstructure:"ratelimit"`
	Review    model.ReviewPolicy    `mapstructure:"review"`
	Checklist model.ChecklistConfig `mapstructure:"checklist"`
	Projects  ProjectsConfig        `mapstructure:"projects"`
}

type ServerConfig struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type WorkersConfig struct {
	OutboxInterval     time.Duration `mapstructure:"outbox_interval"`
	ReconcilerInterval time.Duration `mapstructure:"reconciler_interval"`
}

type StreamConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HubBufferSize     int           `mapstructure:"hub_buffer_size"`
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

// ProjectsConfig declares the known environments for merge computation and
// optional per-project review policy overrides.
type ProjectsConfig struct {
	Environments    []string                      `mapstructure:"environments"`
	ReviewOverrides map[string]model.ReviewPolicy `mapstructure:"review_overrides"`
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("MERGEFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("review.require_review", true)
	viper.SetDefault("review.block_on_changes_requested", true)
	viper.SetDefault("projects.environments", []string{"dev", "staging", "production"})

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional, env vars and defaults still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}
