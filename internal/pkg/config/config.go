package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// RecoverySchedule is a cron spec for completing interrupted decisions.
	RecoverySchedule string `env:"RECOVERY_SCHEDULE, default=@every 1m"`
	// NavigationTimeout bounds the identity read behind /v1/navigation.
	NavigationTimeout time.Duration `env:"NAVIGATION_TIMEOUT, default=2s"`

	Mongo     MongoConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	Gemini    GeminiConfig
	Google    OAuthConfig
	Throttle  ThrottleConfig
	Publisher PublisherConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, required"`
	Database string `env:"MONGO_DB,  default=vivulocal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT,   required"`
	AccessKey string `env:"MINIO_ACCESS_KEY, required"`
	SecretKey string `env:"MINIO_SECRET_KEY, required"`
	Bucket    string `env:"MINIO_BUCKET,     default=vivulocal-media"`
	UseSSL    bool   `env:"MINIO_USE_SSL,    default=false"`
	PublicURL string `env:"MINIO_PUBLIC_URL"`
	MaxSize   int64  `env:"UPLOAD_MAX_BYTES, default=5242880"`
}

type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY, required"`
	// Models are tried in order; later ones are quota fallbacks.
	Models        []string `env:"GEMINI_MODELS, default=gemini-2.5-flash,gemini-2.0-flash,gemini-2.0-flash-lite"`
	SystemContext string   `env:"ASSISTANT_SYSTEM_CONTEXT, default=You are ViVuLocal's travel assistant for Vietnam. Answer briefly and recommend local buddies and partner services when relevant."`
}

type OAuthConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL, default=http://localhost:8080/auth/oauth/google/callback"`
	// FrontendURL receives the token after a successful provider sign-in.
	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:5173"`
}

type ThrottleConfig struct {
	LoginAttempts int           `env:"LOGIN_ATTEMPTS, default=5"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW,   default=1m"`
}

type PublisherConfig struct {
	Workers int `env:"CHANGE_WORKERS, default=8"`
}

// requiredKeys is checked up front so a misconfigured deploy reports every
// missing key at once.
var requiredKeys = []string{
	"JWT_SECRET",
	"MONGO_URI",
	"MINIO_ENDPOINT",
	"MINIO_ACCESS_KEY",
	"MINIO_SECRET_KEY",
	"GEMINI_API_KEY",
}

// ErrMissingConfig is returned when required keys are unset.
var ErrMissingConfig = errors.New("missing required configuration")

// Load reads a local .env file when present, then the environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if v, ok := l.Lookup(key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: %w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
