package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultTopics is used when no catalog is configured.
var DefaultTopics = []string{
	"Is AI a boon or a bane?",
	"Should social media be regulated?",
	"Is remote work the future of employment?",
	"Is online learning better than classroom learning?",
}

// DefaultSecret signs session cookies when none is configured. It is
// rejected in release mode.
const DefaultSecret = "change-me"

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	LogLevel     string        `mapstructure:"log_level"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Secret       string        `mapstructure:"secret"`
	Topics       []string      `mapstructure:"topics"`
	ICEServers   []ICEServer   `mapstructure:"ice_servers"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	SlowConsumer string        `mapstructure:"slow_consumer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", DefaultSecret)
	v.SetDefault("topics", DefaultTopics)
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
	v.SetDefault("rate_limit", 50)
	v.SetDefault("rate_burst", 100)
	v.SetDefault("slow_consumer", "drop")
}

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev).
// DISCUSS_* environment variables override file values.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("DISCUSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Int("topics", len(cfg.Topics)).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Topics) == 0 {
		errs = append(errs, domain.ErrEmptyCatalog)
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer))
	}
	if c.PingPeriod <= 0 || c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("ping_period and write_timeout must be positive"))
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		errs = append(errs, errors.New("rate_limit and rate_burst must be positive"))
	}
	if c.Mode == "release" && (c.Secret == "" || c.Secret == DefaultSecret) {
		errs = append(errs, errors.New("secret must be set in release mode"))
	} else if c.Secret == DefaultSecret {
		log.Warn().Str("module", "config").Msg("using the default session secret")
	}
	switch c.SlowConsumer {
	case "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("slow_consumer must be drop or kick, got %q", c.SlowConsumer))
	}
	return errors.Join(errs...)
}
