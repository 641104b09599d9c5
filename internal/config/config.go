package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	JWT struct {
		Secret         string `yaml:"secret"`
		AccessTTLMin   int    `yaml:"access_ttl_min"`
		RefreshTTLDays int    `yaml:"refresh_ttl_days"`
		RotateRefresh  bool   `yaml:"rotate_refresh"`
	} `yaml:"jwt"`

	// TTL одноразовых токенов в часах
	Tokens struct {
		ActivationTTLHours  int `yaml:"activation_ttl_hours"`
		ResetTTLHours       int `yaml:"reset_ttl_hours"`
		EmailChangeTTLHours int `yaml:"email_change_ttl_hours"`
	} `yaml:"tokens"`

	Frontend struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"frontend"`

	RateLimit struct {
		Enabled   bool `yaml:"enabled"`
		Requests  int  `yaml:"requests"`
		WindowSec int  `yaml:"window_sec"`
	} `yaml:"rate_limit"`

	// Первый superadmin, создаваемый при старте (если его нет)
	Admin struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Режим окружения (тесты, контейнеры): всё из переменных окружения
	cfg.Database.DSN = dbURL
	cfg.Server.Env = getEnv("SERVER_ENV", "development")
	cfg.Server.Port, _ = strconv.Atoi(getEnv("SERVER_PORT", "4000"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	cfg.Email.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.Email.SMTPPort, _ = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	cfg.Email.SMTPUsername = os.Getenv("SMTP_USER")
	cfg.Email.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.Email.FromEmail = getEnv("EMAIL_FROM", "noreply@uru.dev")

	cfg.Frontend.BaseURL = getEnv("FRONTEND_BASE_URL", "http://localhost:3000")

	cfg.Admin.Email = os.Getenv("ADMIN_EMAIL")
	cfg.Admin.Password = os.Getenv("ADMIN_PASSWORD")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

// applyDefaults подставляет значения по умолчанию для незаполненных полей
func applyDefaults(cfg *Config) {
	if cfg.JWT.AccessTTLMin <= 0 {
		cfg.JWT.AccessTTLMin = 60
	}
	if cfg.JWT.RefreshTTLDays <= 0 {
		cfg.JWT.RefreshTTLDays = 7
	}
	// Ротация refresh-токена включена по умолчанию
	if !cfg.JWT.RotateRefresh {
		cfg.JWT.RotateRefresh = os.Getenv("JWT_ROTATE_REFRESH") != "false"
	}
	if cfg.Tokens.ActivationTTLHours <= 0 {
		cfg.Tokens.ActivationTTLHours = 24
	}
	if cfg.Tokens.ResetTTLHours <= 0 {
		cfg.Tokens.ResetTTLHours = 24
	}
	if cfg.Tokens.EmailChangeTTLHours <= 0 {
		cfg.Tokens.EmailChangeTTLHours = 24
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 5
	}
	if cfg.RateLimit.WindowSec <= 0 {
		cfg.RateLimit.WindowSec = 60
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
