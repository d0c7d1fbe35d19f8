package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	CORSOrigins       string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	EventsChannel     string
	JWTSecret         string
	JWTExpiresIn      time.Duration
	BcryptCost        int
	AdminName         string
	AdminEmail        string
	AdminPassword     string
	SMTP              SMTPConfig
	StatsCacheTTL     time.Duration
	EmailTimeout      time.Duration
	LoginRateLimit    int
	LoginRateInterval time.Duration
}

// SMTPConfig describes the mail transport used for notifications.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Secure   bool
}

// Enabled reports whether an SMTP host was configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "production" || env == "prod"
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("COUNSEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Counseling API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("events.channel", "counseling")
	v.SetDefault("jwt.expires_in", "168h")
	v.SetDefault("bcrypt.cost", 12)
	v.SetDefault("admin.name", "Counsellor Admin")
	v.SetDefault("admin.email", "counsellor@atmachetna.com")
	v.SetDefault("admin.password", "admin123")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.secure", false)
	v.SetDefault("stats.cache_ttl", "2m")
	v.SetDefault("email.timeout", "10s")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("login.rate_interval", "1m")
}

func fromViper(v *viper.Viper) (Config, error) {
	expiresIn, err := parseDuration(v, "jwt.expires_in", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	statsTTL, err := parseDuration(v, "stats.cache_ttl", 2*time.Minute)
	if err != nil {
		return Config{}, err
	}

	emailTimeout, err := parseDuration(v, "email.timeout", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	rateInterval, err := parseDuration(v, "login.rate_interval", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		CORSOrigins:   v.GetString("cors.allowed_origins"),
		DatabaseURL:   v.GetString("database.url"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		EventsChannel: v.GetString("events.channel"),
		JWTSecret:     v.GetString("jwt.secret"),
		JWTExpiresIn:  expiresIn,
		BcryptCost:    v.GetInt("bcrypt.cost"),
		AdminName:     v.GetString("admin.name"),
		AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("admin.email"))),
		AdminPassword: v.GetString("admin.password"),
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			FromName: v.GetString("smtp.from_name"),
			Secure:   v.GetBool("smtp.secure"),
		},
		StatsCacheTTL:     statsTTL,
		EmailTimeout:      emailTimeout,
		LoginRateLimit:    v.GetInt("login.rate_limit"),
		LoginRateInterval: rateInterval,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	// bcrypt rejects costs outside [4, 31].
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		cfg.BcryptCost = 12
	}

	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = cfg.AppName
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
