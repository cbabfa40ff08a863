package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	AppName     string `env:"APP_NAME,     default=Auth API"`
	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:3000"`
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Token     TokenConfig
	API       APIConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	OAuth     OAuthConfig
	Mail      MailConfig
	S3        S3Config
	Seed      SeedConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_api"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type TokenConfig struct {
	ExpirationMinutes int `env:"TOKEN_EXPIRATION_MINUTES, default=10080"`
}

// TTL returns the lifetime of newly issued tokens.
func (t TokenConfig) TTL() time.Duration {
	return time.Duration(t.ExpirationMinutes) * time.Minute
}

type APIConfig struct {
	LatestVersion      string   `env:"API_LATEST_VERSION, default=v1"`
	DeprecatedVersions []string `env:"API_DEPRECATED_VERSIONS"`
}

type RateLimitConfig struct {
	Default       int           `env:"RATE_LIMIT_DEFAULT,       default=60"`
	Authenticated int           `env:"RATE_LIMIT_AUTHENTICATED, default=120"`
	Admin         int           `env:"RATE_LIMIT_ADMIN,         default=500"`
	Login         int           `env:"RATE_LIMIT_LOGIN,         default=5"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW,        default=1m"`
}

type PasswordConfig struct {
	ResetTTL      time.Duration `env:"PASSWORD_RESET_TTL,      default=60m"`
	ResetThrottle time.Duration `env:"PASSWORD_RESET_THROTTLE, default=60s"`
}

type OAuthConfig struct {
	StateSecret string `env:"OAUTH_STATE_SECRET"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URI"`

	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	FacebookRedirectURL  string `env:"FACEBOOK_REDIRECT_URI"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URI"`
}

type MailConfig struct {
	Host       string `env:"SMTP_HOST,        default=localhost"`
	Port       int    `env:"SMTP_PORT,        default=1025"`
	Username   string `env:"SMTP_USERNAME"`
	Password   string `env:"SMTP_PASSWORD"`
	SkipVerify bool   `env:"SMTP_SKIP_VERIFY, default=false"`
	From       string `env:"MAIL_FROM_ADDRESS, default=no-reply@example.com"`
	FromName   string `env:"MAIL_FROM_NAME"`
	Workers    int    `env:"MAIL_WORKERS,     default=2"`
}

type S3Config struct {
	Bucket       string `env:"S3_BUCKET"`
	Region       string `env:"S3_REGION,         default=us-east-1"`
	Endpoint     string `env:"S3_ENDPOINT"`
	AccessKey    string `env:"S3_ACCESS_KEY"`
	SecretKey    string `env:"S3_SECRET_KEY"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE, default=false"`
	PublicURL    string `env:"S3_PUBLIC_URL"`
}

type SeedConfig struct {
	Permissions   []string `env:"SEED_PERMISSIONS, default=manage-users,manage-roles"`
	AdminName     string   `env:"ADMIN_NAME"`
	AdminEmail    string   `env:"ADMIN_EMAIL"`
	AdminPassword string   `env:"ADMIN_PASSWORD"`
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file into the process environment and then
// decodes the environment into Config.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	if c.Token.ExpirationMinutes <= 0 {
		return errors.New("config: TOKEN_EXPIRATION_MINUTES must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("config: RATE_LIMIT_WINDOW must be positive")
	}
	if c.OAuth.StateSecret == "" && c.IsProduction() {
		return errors.New("config: OAUTH_STATE_SECRET is required in production")
	}
	return nil
}
