package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	LogLevel    string        `mapstructure:"log_level"`
	ControlPort int           `mapstructure:"control_port"`
	SignalURL   string        `mapstructure:"signal_url"`
	DisplayName string        `mapstructure:"display_name"`
	TokenURL    string        `mapstructure:"token_url"`
	Secret      string        `mapstructure:"secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	DevicesFile string        `mapstructure:"devices_file"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	ICEServers  []string      `mapstructure:"ice_servers"`
}

// Load reads path, or config/config.<CONFIG_ENV>.yaml when path is empty.
// MEET_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	fileName := path
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("meet")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("control_port", 8090)
	v.SetDefault("signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("display_name", "")
	v.SetDefault("token_url", "")
	v.SetDefault("secret", "")
	v.SetDefault("token_ttl", "1h")
	v.SetDefault("devices_file", "devices.yaml")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("control_port", cfg.ControlPort).
		Str("signal_url", cfg.SignalURL).Msg("config ready")
	return &cfg, nil
}
