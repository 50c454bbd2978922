package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BotToken      string        `mapstructure:"bot_token"`
	ApplicationID string        `mapstructure:"application_id"`
	GuildID       string        `mapstructure:"guild_id"` // empty = register commands globally
	DatabasePath  string        `mapstructure:"database_path"`
	ListenAddr    string        `mapstructure:"listen_addr"`
	ProbeBackend  string        `mapstructure:"probe_backend"` // "query" or "webapi"
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	SinkTimeout   time.Duration `mapstructure:"sink_timeout"`
	IntervalFloor time.Duration `mapstructure:"interval_floor"`
	OperatorUser  string        `mapstructure:"operator_user"`
	OperatorPass  string        `mapstructure:"operator_pass"`
	LogLevel      string        `mapstructure:"log_level"`
}

// Load reads shotmc.yaml (if present) and SHOTMC_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHOTMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bot_token", "")
	v.SetDefault("application_id", "")
	v.SetDefault("guild_id", "")
	v.SetDefault("database_path", "./data/shotmc.db")
	v.SetDefault("listen_addr", ":8090")
	v.SetDefault("probe_backend", "query")
	v.SetDefault("probe_timeout", "5s")
	v.SetDefault("sink_timeout", "10s")
	v.SetDefault("interval_floor", "5s")
	v.SetDefault("operator_user", "admin")
	v.SetDefault("operator_pass", "admin")
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("shotmc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.ProbeBackend != "query" && cfg.ProbeBackend != "webapi" {
		return nil, fmt.Errorf("probe_backend must be query or webapi, got %q", cfg.ProbeBackend)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	return &cfg, nil
}
