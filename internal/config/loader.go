package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "CHATARCHIVER_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("db.host", cfg.DB.Host)
	v.SetDefault("db.port", cfg.DB.Port)
	v.SetDefault("db.user", cfg.DB.User)
	v.SetDefault("db.password", cfg.DB.Password)
	v.SetDefault("db.name", cfg.DB.Name)
	v.SetDefault("db.query_timeout", cfg.DB.QueryTimeout)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.nickname_key", cfg.Redis.NicknameKey)
	v.SetDefault("mqtt.broker_url", cfg.MQTT.BrokerURL)
	v.SetDefault("mqtt.topic_public", cfg.MQTT.TopicPublic)
	v.SetDefault("mqtt.topic_reaction", cfg.MQTT.TopicReaction)
	v.SetDefault("cors.allowed_origins", cfg.CORS.AllowedOrigins)
	v.SetDefault("ingest.workers", cfg.Ingest.Workers)
	v.SetDefault("ingest.queue_size", cfg.Ingest.QueueSize)
	v.SetDefault("ingest.op_timeout", cfg.Ingest.OpTimeout)
	v.SetDefault("ingest.dedupe_window", cfg.Ingest.DedupeWindow)

	v.SetEnvPrefix("CHATARCHIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
