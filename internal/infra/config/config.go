package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultCsrfSecret is the development fallback. Using it outside development
// triggers a loud startup warning and is refused entirely in production.
const DefaultCsrfSecret = "default-csrf-secret-change-in-production"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Data      DataSettings      `mapstructure:"data"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Csrf      CsrfSettings      `mapstructure:"csrf"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DataSettings locates the JSON stores, table files and the audit log.
type DataSettings struct {
	Dir          string `mapstructure:"dir"`
	UsersFile    string `mapstructure:"users_file"`
	InvitesFile  string `mapstructure:"invites_file"`
	AuditLogFile string `mapstructure:"audit_log_file"`
}

type AuthSettings struct {
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	MaxFailedAttempts    int           `mapstructure:"max_failed_attempts"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`
	DefaultAdminPassword string        `mapstructure:"default_admin_password"`
	InviteTTLHours       int           `mapstructure:"invite_ttl_hours"`
	PasswordMinScore     int           `mapstructure:"password_min_score"`
}

type CsrfSettings struct {
	Secret  string `mapstructure:"secret"`
	Enforce bool   `mapstructure:"enforce"`
}

type RateLimitSettings struct {
	Window           time.Duration `mapstructure:"window"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
	ApiMaxRequests   int           `mapstructure:"api_max_requests"`
}

// RedisSettings configures the optional Redis-backed rate-limit store. When
// Addr is empty the in-memory store is used.
type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// KafkaSettings configures the optional audit event mirror. When Brokers is
// empty audit events go to the file log only.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// MaxFailedAttemptsClamped returns the lockout threshold bounded to [3,10].
func (a AuthSettings) MaxFailedAttemptsClamped() int {
	if a.MaxFailedAttempts < 3 || a.MaxFailedAttempts > 10 {
		return 5
	}
	return a.MaxFailedAttempts
}

// UsingDefaultCsrfSecret reports whether the development fallback is active.
func (c CsrfSettings) UsingDefaultCsrfSecret() bool {
	return c.Secret == "" || c.Secret == DefaultCsrfSecret
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ER")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"data.dir",
		"data.users_file",
		"data.invites_file",
		"data.audit_log_file",
		"auth.bcrypt_cost",
		"auth.max_failed_attempts",
		"auth.session_ttl",
		"auth.default_admin_password",
		"auth.invite_ttl_hours",
		"auth.password_min_score",
		"csrf.secret",
		"csrf.enforce",
		"rate_limit.window",
		"rate_limit.login_max_attempts",
		"rate_limit.api_max_requests",
		"redis.addr",
		"redis.db",
		"redis.password",
		"kafka.brokers",
		"kafka.topic_prefix",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.App.Env == "production" && c.Csrf.UsingDefaultCsrfSecret() {
		return fmt.Errorf("csrf.secret must be set explicitly in production")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "entgeltrechner")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "127.0.0.1")
	v.SetDefault("app.port", 3001)

	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.users_file", "users.json")
	v.SetDefault("data.invites_file", "invites.json")
	v.SetDefault("data.audit_log_file", "audit.log")

	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.max_failed_attempts", 5)
	v.SetDefault("auth.session_ttl", "1h")
	v.SetDefault("auth.default_admin_password", "Admin123!Test")
	v.SetDefault("auth.invite_ttl_hours", 72)
	v.SetDefault("auth.password_min_score", 0)

	v.SetDefault("csrf.secret", DefaultCsrfSecret)
	v.SetDefault("csrf.enforce", true)

	v.SetDefault("rate_limit.window", "15m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.api_max_requests", 100)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "entgeltrechner")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ER_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
