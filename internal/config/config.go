package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from config files and
// environment variables.
type Config struct {
	Env        string `mapstructure:"env"`
	ListenAddr string `mapstructure:"listen_addr"`

	MongoURI  string `mapstructure:"-"`
	MongoDB   string `mapstructure:"mongo_database"`
	RedisAddr string `mapstructure:"-"`

	RabbitURI      string `mapstructure:"-"`
	RabbitExchange string `mapstructure:"rabbit_exchange"`

	CORSOrigins []string `mapstructure:"cors_origins"`

	Quiz QuizDefaults `mapstructure:"quiz"`
}

// QuizDefaults are the engine defaults applied when an attempt does not
// override them.
type QuizDefaults struct {
	PassingScore    int  `mapstructure:"passing_score"`
	ReviewBatchSize int  `mapstructure:"review_batch_size"`
	AutoAdvance     bool `mapstructure:"auto_advance"`
	AllowBackNav    bool `mapstructure:"allow_back_navigation"`
}

// Load reads configuration from ./config/config.yaml (if present) and the
// environment. Connection strings come from the environment only.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("listen_addr", ":6660")
	v.SetDefault("mongo_database", "quiz_engine")
	v.SetDefault("rabbit_exchange", "quiz.events")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("quiz.passing_score", 70)
	v.SetDefault("quiz.review_batch_size", 20)
	v.SetDefault("quiz.auto_advance", true)
	v.SetDefault("quiz.allow_back_navigation", true)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("mongo_uri", "MONGO_URI")
	_ = v.BindEnv("redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("rabbitmq_uri", "RABBITMQ_URI")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.MongoURI = v.GetString("mongo_uri")
	if cfg.MongoURI == "" {
		return nil, ErrMissingEnvironmentVariables
	}
	cfg.RedisAddr = v.GetString("redis_addr")
	cfg.RabbitURI = v.GetString("rabbitmq_uri")

	return &cfg, nil
}
