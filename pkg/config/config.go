package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Application status policies.
const (
	ApplicationPolicyAdmin = "admin"
	ApplicationPolicyOwner = "owner"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Identity     IdentityConfig
	Stripe       StripeConfig
	Applications ApplicationsConfig
	Events       EventsConfig
	RoleSweep    RoleSweepConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// IdentityConfig configures Firebase ID token verification.
type IdentityConfig struct {
	ProjectID    string
	CertsURL     string
	Timeout      time.Duration
	KeysCacheTTL time.Duration
}

// StripeConfig configures the hosted checkout provider.
type StripeConfig struct {
	SecretKey  string
	BaseURL    string
	Currency   string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// ApplicationsConfig selects who may decide on tutor applications.
type ApplicationsConfig struct {
	StatusPolicy string
}

// EventsConfig configures domain event publishing. An empty AMQPURL disables it.
type EventsConfig struct {
	AMQPURL    string
	Exchange   string
	Workers    int
	MaxRetries int
}

// RoleSweepConfig schedules the tutor role reconciliation sweep.
type RoleSweepConfig struct {
	Schedule string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		QueryTimeout: parseDuration(v.GetString("DB_QUERY_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Identity = IdentityConfig{
		ProjectID:    v.GetString("FIREBASE_PROJECT_ID"),
		CertsURL:     v.GetString("IDENTITY_CERTS_URL"),
		Timeout:      parseDuration(v.GetString("IDENTITY_TIMEOUT"), 5*time.Second),
		KeysCacheTTL: parseDuration(v.GetString("IDENTITY_KEYS_CACHE_TTL"), time.Hour),
	}

	cfg.Stripe = StripeConfig{
		SecretKey:  v.GetString("STRIPE_SECRET_KEY"),
		BaseURL:    strings.TrimRight(v.GetString("STRIPE_API_BASE_URL"), "/"),
		Currency:   strings.ToLower(v.GetString("STRIPE_CURRENCY")),
		SuccessURL: v.GetString("STRIPE_SUCCESS_URL"),
		CancelURL:  v.GetString("STRIPE_CANCEL_URL"),
		Timeout:    parseDuration(v.GetString("STRIPE_TIMEOUT"), 10*time.Second),
	}

	policy := strings.ToLower(strings.TrimSpace(v.GetString("APPLICATION_STATUS_POLICY")))
	if policy != ApplicationPolicyOwner {
		policy = ApplicationPolicyAdmin
	}
	cfg.Applications = ApplicationsConfig{StatusPolicy: policy}

	cfg.Events = EventsConfig{
		AMQPURL:    v.GetString("AMQP_URL"),
		Exchange:   v.GetString("EVENTS_EXCHANGE"),
		Workers:    v.GetInt("EVENTS_WORKERS"),
		MaxRetries: v.GetInt("EVENTS_MAX_RETRIES"),
	}

	cfg.RoleSweep = RoleSweepConfig{Schedule: v.GetString("ROLE_SWEEP_SCHEDULE")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tuitron_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_QUERY_TIMEOUT", "10s")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("IDENTITY_CERTS_URL", "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com")
	v.SetDefault("IDENTITY_TIMEOUT", "5s")
	v.SetDefault("IDENTITY_KEYS_CACHE_TTL", "1h")

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_API_BASE_URL", "https://api.stripe.com")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("STRIPE_SUCCESS_URL", "http://localhost:5173/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("STRIPE_CANCEL_URL", "http://localhost:5173/dashboard/payment-cancelled")
	v.SetDefault("STRIPE_TIMEOUT", "10s")

	v.SetDefault("APPLICATION_STATUS_POLICY", ApplicationPolicyAdmin)

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "tuitron.events")
	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_MAX_RETRIES", 3)

	v.SetDefault("ROLE_SWEEP_SCHEDULE", "*/15 * * * *")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
