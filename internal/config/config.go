package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"babyhabits/pkg/logger"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTPPort    string
	Env         string
	StoreDriver string
	CORS        CORSConfig
	DB          DBConfig
	Redis       RedisConfig
	Supabase    SupabaseConfig
	Tracking    TrackingConfig
	Invite      InviteConfig
	SES         SESConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional: with an empty Addr the change feed and the
// preferences store stay in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type SupabaseConfig struct {
	URL            string
	PublishableKey string
	JWTSecret      string
	AuthTimeout    time.Duration
	SkipAuth       bool
	MockUserID     string
	MockUserEmail  string
	MockUserName   string
	MockUserAvatar string
}

type TrackingConfig struct {
	TimeZone            string
	FeedingStaleAfter   time.Duration
	SleepStaleAfter     time.Duration
	FeedingReapDuration time.Duration
	SleepReapDuration   time.Duration
	RecentWeights       int
	SnapshotTTL         time.Duration
	TrackerIdleAfter    time.Duration
}

// Location resolves TimeZone; day boundaries for today's data use it.
func (c TrackingConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

type InviteConfig struct {
	TTL        time.Duration
	AppBaseURL string
	CacheTTL   time.Duration
}

type SESConfig struct {
	Region    string
	FromEmail string
	FromName  string
}

func Load(log logger.Logger) (Config, error) {
	err := loadDotEnv(log)
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		DB: DBConfig{
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "babyhabits"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			PublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", getEnv("VITE_SUPABASE_PUBLISHABLE_KEY", "")),
			JWTSecret:      strings.TrimSpace(getEnv("SUPABASE_JWT_SECRET", "")),
			AuthTimeout:    getEnvDuration("SUPABASE_AUTH_TIMEOUT", 5*time.Second),
			SkipAuth:       getEnvBool("AUTH_SKIP", false),
			MockUserID:     getEnv("AUTH_MOCK_USER_ID", "00000000-0000-0000-0000-000000000001"),
			MockUserEmail:  getEnv("AUTH_MOCK_USER_EMAIL", ""),
			MockUserName:   getEnv("AUTH_MOCK_USER_NAME", ""),
			MockUserAvatar: getEnv("AUTH_MOCK_USER_AVATAR_URL", ""),
		},
		Tracking: TrackingConfig{
			TimeZone:            getEnv("TRACKING_TIMEZONE", "UTC"),
			FeedingStaleAfter:   getEnvDuration("TRACKING_FEEDING_STALE_AFTER", 6*time.Hour),
			SleepStaleAfter:     getEnvDuration("TRACKING_SLEEP_STALE_AFTER", 18*time.Hour),
			FeedingReapDuration: getEnvDuration("TRACKING_FEEDING_REAP_DURATION", 30*time.Minute),
			SleepReapDuration:   getEnvDuration("TRACKING_SLEEP_REAP_DURATION", 10*time.Hour),
			RecentWeights:       getEnvInt("TRACKING_RECENT_WEIGHTS", 7),
			SnapshotTTL:         getEnvDuration("TRACKING_SNAPSHOT_TTL", time.Minute),
			TrackerIdleAfter:    getEnvDuration("TRACKING_IDLE_AFTER", 30*time.Minute),
		},
		Invite: InviteConfig{
			TTL:        getEnvDuration("INVITE_TTL", 7*24*time.Hour),
			AppBaseURL: strings.TrimRight(getEnv("INVITE_APP_BASE_URL", "http://localhost:5173"), "/"),
			CacheTTL:   getEnvDuration("BABIES_CACHE_TTL", 5*time.Minute),
		},
		SES: SESConfig{
			Region:    getEnv("SES_REGION", getEnv("AWS_REGION", "eu-west-1")),
			FromEmail: getEnv("SES_FROM_EMAIL", ""),
			FromName:  getEnv("SES_FROM_NAME", "Baby Habits"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if _, err := c.Tracking.Location(); err != nil {
		return fmt.Errorf("config: TRACKING_TIMEZONE: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
