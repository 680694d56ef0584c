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

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	RestaurantName string `env:"RESTAURANT_NAME, default=Restaurant Name"`

	Auth     AuthConfig
	Identity IdentityConfig
	Voucher  VoucherConfig
	Reward   RewardConfig
	Scanner  ScannerConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=24h"`
}

// IdentityConfig configures ID-token verification. IDP_PUBLIC_KEY takes
// precedence over IDP_SECRET.
type IdentityConfig struct {
	Secret    string `env:"IDP_SECRET"`
	PublicKey string `env:"IDP_PUBLIC_KEY"`
	Issuer    string `env:"IDP_ISSUER"`
	Audience  string `env:"IDP_AUDIENCE"`
}

type VoucherConfig struct {
	FreshnessWindow  time.Duration `env:"VOUCHER_FRESHNESS_WINDOW,  default=5m"`
	ReplayProtection bool          `env:"VOUCHER_REPLAY_PROTECTION, default=true"`
	WriteTimeout     time.Duration `env:"VOUCHER_WRITE_TIMEOUT,     default=10s"`
}

type RewardConfig struct {
	Issuance bool `env:"REWARD_ISSUANCE, default=false"`
}

type ScannerConfig struct {
	Interval time.Duration `env:"SCANNER_INTERVAL, default=300ms"`
	Debounce time.Duration `env:"SCANNER_DEBOUNCE, default=2s"`
	// AllowedOrigins are host patterns accepted on the websocket stream.
	AllowedOrigins []string `env:"SCANNER_ALLOWED_ORIGINS"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string        `env:"MONGO_DB,      default=ravintola"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// KioskConfig is read by the scanner terminal.
type KioskConfig struct {
	APIURL   string        `env:"KIOSK_API_URL,  default=http://localhost:8080"`
	IDToken  string        `env:"KIOSK_ID_TOKEN"`
	Timeout  time.Duration `env:"KIOSK_TIMEOUT,  default=15s"`
	LogLevel string        `env:"LOG_LEVEL,      default=info"`

	RestaurantName string `env:"RESTAURANT_NAME"`
	Scanner        ScannerConfig
}

// IsDevelopment reports whether the service runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := process(ctx, &cfg); err != nil {
		return nil, err
	}
	if cfg.Identity.Secret == "" && cfg.Identity.PublicKey == "" {
		return nil, errors.New("config: one of IDP_SECRET or IDP_PUBLIC_KEY is required")
	}
	return &cfg, nil
}

func LoadKiosk(ctx context.Context) (*KioskConfig, error) {
	var cfg KioskConfig
	if err := process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func process(ctx context.Context, cfg interface{}) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
