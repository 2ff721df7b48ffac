package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Media     MediaConfig
	Storage   StorageConfig
	Veo       VeoConfig
	Breakdown BreakdownConfig
	Embedding EmbeddingConfig
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

type PostgresConfig struct {
	URL string
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ScriptsPerHour int
	RenderPerHour  int
}

type MediaConfig struct {
	Root string
}

// StorageConfig selects the artifact storage backend. Driver is "local" or "s3".
type StorageConfig struct {
	Driver          string
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// VeoConfig holds Vertex AI settings for the video generation backend.
type VeoConfig struct {
	ProjectID       string
	Location        string
	ModelID         string
	CredentialsPath string
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

// BreakdownConfig points at an OpenAI-compatible chat completion endpoint
// used for script-to-scene decomposition.
type BreakdownConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type EmbeddingConfig struct {
	BaseURL string
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
	viper.SetDefault("postgres.url", "postgres://localhost:5432/shotflow?sslmode=disable")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.scripts_per_hour", 10)
	viper.SetDefault("ratelimit.render_per_hour", 30)
	viper.SetDefault("media.root", "media")
	viper.SetDefault("storage.driver", "local")
	viper.SetDefault("storage.region", "auto")
	viper.SetDefault("veo.location", "us-central1")
	viper.SetDefault("veo.model_id", "veo-2.0-generate-exp")
	viper.SetDefault("veo.credentials_path", "keys/veo.json")
	viper.SetDefault("veo.poll_interval", "5s")
	viper.SetDefault("veo.poll_timeout", "10m")
	viper.SetDefault("breakdown.base_url", "https://api.openai.com/v1")
	viper.SetDefault("breakdown.model", "gpt-4o")
	viper.SetDefault("embedding.base_url", "http://localhost:8091")

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
		Postgres: PostgresConfig{
			URL: viper.GetString("postgres.url"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ScriptsPerHour: viper.GetInt("ratelimit.scripts_per_hour"),
			RenderPerHour:  viper.GetInt("ratelimit.render_per_hour"),
		},
		Media: MediaConfig{
			Root: viper.GetString("media.root"),
		},
		Storage: StorageConfig{
			Driver:          viper.GetString("storage.driver"),
			Bucket:          viper.GetString("storage.bucket"),
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			PublicURL:       viper.GetString("storage.public_url"),
		},
		Veo: VeoConfig{
			ProjectID:       viper.GetString("veo.project_id"),
			Location:        viper.GetString("veo.location"),
			ModelID:         viper.GetString("veo.model_id"),
			CredentialsPath: viper.GetString("veo.credentials_path"),
			PollInterval:    viper.GetDuration("veo.poll_interval"),
			PollTimeout:     viper.GetDuration("veo.poll_timeout"),
		},
		Breakdown: BreakdownConfig{
			BaseURL: viper.GetString("breakdown.base_url"),
			APIKey:  viper.GetString("breakdown.api_key"),
			Model:   viper.GetString("breakdown.model"),
		},
		Embedding: EmbeddingConfig{
			BaseURL: viper.GetString("embedding.base_url"),
		},
	}

	return cfg, nil
}
