package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port       string `env:"PORT,        default=8080"`
	Env        string `env:"ENV,         default=development"`
	LogLevel   string `env:"LOG_LEVEL,   default=info"`
	CORSOrigin string `env:"CORS_ORIGIN, default=*"`
	BodyLimit  string `env:"BODY_LIMIT,  default=16K"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	S3    S3Config
}

type AuthConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	// CookieSecure controls the Secure attribute on auth cookies. Disable
	// only for plain-HTTP local development.
	CookieSecure bool `env:"COOKIE_SECURE, default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=streampulse"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type S3Config struct {
	Region        string `env:"S3_REGION,   default=us-east-1"`
	Bucket        string `env:"S3_BUCKET,   default=streampulse-media"`
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	Endpoint      string `env:"S3_ENDPOINT"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
