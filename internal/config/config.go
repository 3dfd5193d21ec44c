package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PipelineConfig struct {
	ProcessingDelay time.Duration
	SampleURI       string
	Queue           string
}

type RateLimitConfig struct {
	UploadPerHour    int
	AnalyticsPerHour int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("pipeline.processing_delay_ms", 1500)
	viper.SetDefault("pipeline.sample_uri", "https://cdn.stemworks.io/samples/preview.mp3")
	viper.SetDefault("pipeline.queue", "stems")
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.analytics_per_hour", 300)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Pipeline: PipelineConfig{
			ProcessingDelay: time.Duration(viper.GetInt("pipeline.processing_delay_ms")) * time.Millisecond,
			SampleURI:       viper.GetString("pipeline.sample_uri"),
			Queue:           viper.GetString("pipeline.queue"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour:    viper.GetInt("ratelimit.upload_per_hour"),
			AnalyticsPerHour: viper.GetInt("ratelimit.analytics_per_hour"),
		},
	}

	return cfg, nil
}
