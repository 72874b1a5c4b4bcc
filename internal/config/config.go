package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`

	// Evidence is the S3-compatible bucket holding seal status evidence
	// (broken/tampered photos). Empty endpoint disables the store and
	// evidence stays inline in the seals table.
	Evidence struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
	} `mapstructure:"evidence"`

	Notify struct {
		WebhookURL     string `mapstructure:"webhook_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"notify"`

	Monitoring struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"monitoring"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "tripseal-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "tripseal_db")
	v.SetDefault("redis.host", "redis")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("evidence.region", "auto")
	v.SetDefault("evidence.bucket", "seal-evidence")
	v.SetDefault("notify.timeout_seconds", 5)
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.port", 9091)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] no config file, using env and defaults: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("[Config] unmarshal failed: %v", err)
	}

	// Env overrides for secrets
	if s := v.GetString("JWT_SECRET"); s != "" {
		cfg.JWT.Secret = s
	}
	if s := v.GetString("DATABASE_PASSWORD"); s != "" {
		cfg.Database.Password = s
	}
	if s := v.GetString("EVIDENCE_ACCESS_KEY"); s != "" {
		cfg.Evidence.AccessKey = s
	}
	if s := v.GetString("EVIDENCE_SECRET_KEY"); s != "" {
		cfg.Evidence.SecretKey = s
	}

	if cfg.JWT.Secret == "" {
		log.Println("[Config] WARNING: jwt.secret is empty, tokens are insecure")
	}

	return &cfg
}
