package config

import (
	"fmt"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DB     DBConfig     `mapstructure:"db" yaml:"db"`
	Redis  RedisConfig  `mapstructure:"redis" yaml:"redis"`
	MQTT   MQTTConfig   `mapstructure:"mqtt" yaml:"mqtt"`
	CORS   CORSConfig   `mapstructure:"cors" yaml:"cors"`
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	User         string        `mapstructure:"user" yaml:"user"`
	Password     string        `mapstructure:"password" yaml:"password"`
	Name         string        `mapstructure:"name" yaml:"name"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// DSN builds a lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds key/set store settings.
type RedisConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	NicknameKey string `mapstructure:"nickname_key" yaml:"nickname_key"`
}

// MQTTConfig holds broker and topic settings.
type MQTTConfig struct {
	BrokerURL     string `mapstructure:"broker_url" yaml:"broker_url"`
	TopicPublic   string `mapstructure:"topic_public" yaml:"topic_public"`
	TopicReaction string `mapstructure:"topic_reaction" yaml:"topic_reaction"`
}

// CORSConfig holds allowed origins for the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// IngestConfig tunes the pub/sub dispatcher.
type IngestConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	QueueSize    int           `mapstructure:"queue_size" yaml:"queue_size"`
	OpTimeout    time.Duration `mapstructure:"op_timeout" yaml:"op_timeout"`
	DedupeWindow time.Duration `mapstructure:"dedupe_window" yaml:"dedupe_window"`
}

// Default returns configuration with reasonable local-development defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          "info",
		DB: DBConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "postgres",
			Password:     "password",
			Name:         "chatdb",
			QueryTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			NicknameKey: "active_nicknames",
		},
		MQTT: MQTTConfig{
			BrokerURL:     "mqtt://localhost:1883",
			TopicPublic:   "k8s-chat/public",
			TopicReaction: "k8s-chat/reaction",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Ingest: IngestConfig{
			Workers:      4,
			QueueSize:    256,
			OpTimeout:    5 * time.Second,
			DedupeWindow: 0, // duplicate archival accepted under redelivery by default
		},
	}
}
