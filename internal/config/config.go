package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Policy       PolicyConfig
	Media        MediaConfig
	Payment      PaymentConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           string
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	ConnectAttempts int
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Encoding is "json" or "console".
	Encoding string
	Service  string
	Version  string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	SessionTTLMinutes       int
	RememberMeTTLHours      int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// PolicyConfig holds the site rules that are expected to be tuned.
type PolicyConfig struct {
	DeclineCooldownDays  int
	OppositeGenderOnly   bool
	RequestNoteMaxLength int
	MessageMaxLength     int
	MessagesPerMinute    int
	MessagesPerHour      int
	LoginMaxFailures     int
	LoginLockoutMinutes  int
	OnlineWindowMinutes  int
	NotifyOnDecline      bool
	Timezone             string
}

// MediaConfig controls where uploaded photos are stored.
type MediaConfig struct {
	UploadDir      string
	PublicPrefix   string
	MaxUploadBytes int64
}

// PaymentConfig guards the gateway callback.
type PaymentConfig struct {
	CallbackSecret    string
	AllowTestPayments bool
}

const defaultJWTSecret = "dev-secret"

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	appEnv := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "matchmaking-service"),
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("HTTP_CORS_ORIGINS", "*"),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 6*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "matchmaking:"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", defaultJWTSecret),
			SessionTTLMinutes:       getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 8*60),
			RememberMeTTLHours:      getEnvAsInt("AUTH_REMEMBER_ME_TTL_HOURS", 30*24),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Policy: PolicyConfig{
			DeclineCooldownDays:  getEnvAsInt("POLICY_DECLINE_COOLDOWN_DAYS", 7),
			OppositeGenderOnly:   getEnvAsBool("POLICY_OPPOSITE_GENDER_ONLY", true),
			RequestNoteMaxLength: getEnvAsInt("POLICY_REQUEST_NOTE_MAX_LENGTH", 200),
			MessageMaxLength:     getEnvAsInt("POLICY_MESSAGE_MAX_LENGTH", 1000),
			MessagesPerMinute:    getEnvAsInt("POLICY_MESSAGES_PER_MINUTE", 20),
			MessagesPerHour:      getEnvAsInt("POLICY_MESSAGES_PER_HOUR", 100),
			LoginMaxFailures:     getEnvAsInt("POLICY_LOGIN_MAX_FAILURES", 5),
			LoginLockoutMinutes:  getEnvAsInt("POLICY_LOGIN_LOCKOUT_MINUTES", 15),
			OnlineWindowMinutes:  getEnvAsInt("POLICY_ONLINE_WINDOW_MINUTES", 5),
			NotifyOnDecline:      getEnvAsBool("POLICY_NOTIFY_ON_DECLINE", true),
			Timezone:             getEnv("POLICY_TIMEZONE", "Asia/Colombo"),
		},
		Media: MediaConfig{
			UploadDir:      getEnv("MEDIA_UPLOAD_DIR", "uploads/profiles"),
			PublicPrefix:   getEnv("MEDIA_PUBLIC_PREFIX", "/uploads/profiles"),
			MaxUploadBytes: int64(getEnvAsInt("MEDIA_MAX_UPLOAD_BYTES", 5*1024*1024)),
		},
		Payment: PaymentConfig{
			CallbackSecret:    os.Getenv("PAYMENT_CALLBACK_SECRET"),
			AllowTestPayments: getEnvAsBool("PAYMENT_ALLOW_TEST", appEnv != "production"),
		},
	}

	cfg.Logger.Service = cfg.App.Name
	cfg.Logger.Version = cfg.App.Version

	if appEnv == "production" && cfg.Auth.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	return cfg, nil
}

// DefaultPolicy returns the policy used when no environment overrides exist.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		DeclineCooldownDays:  7,
		OppositeGenderOnly:   true,
		RequestNoteMaxLength: 200,
		MessageMaxLength:     1000,
		MessagesPerMinute:    20,
		MessagesPerHour:      100,
		LoginMaxFailures:     5,
		LoginLockoutMinutes:  15,
		OnlineWindowMinutes:  5,
		NotifyOnDecline:      true,
		Timezone:             "Asia/Colombo",
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DeclineCooldown is how long a declined sender must wait before asking again.
func (p PolicyConfig) DeclineCooldown() time.Duration {
	return time.Duration(p.DeclineCooldownDays) * 24 * time.Hour
}

// OnlineWindow is how recent activity must be to count as online.
func (p PolicyConfig) OnlineWindow() time.Duration {
	if p.OnlineWindowMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.OnlineWindowMinutes) * time.Minute
}

// LoginLockout is the window failed logins are counted in.
func (p PolicyConfig) LoginLockout() time.Duration {
	return time.Duration(p.LoginLockoutMinutes) * time.Minute
}

// Location resolves the timezone used to decide what "today" means.
func (p PolicyConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
