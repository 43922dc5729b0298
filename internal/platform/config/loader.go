package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

var AppConfig Config

func LoadConfig() (*Config, error) {
	viper.SetConfigName("app-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config into struct: %s", err)
	}

	if err := AppConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("Configuration loaded successfully.")
	return &AppConfig, nil
}

// validate fails startup when a required secret or database parameter
// is missing rather than limping along and failing on first request.
func (c *Config) validate() error {
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return fmt.Errorf("jwt.access_secret and jwt.refresh_secret are required")
	}
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database.host, database.user and database.dbname are required")
	}
	return nil
}

// AccessTokenExpiry parses the configured access token lifetime,
// defaulting to 15 minutes.
func (c *JWTConfig) AccessTokenExpiryDuration() time.Duration {
	return parseDurationOr(c.AccessTokenExpiry, 15*time.Minute)
}

// RefreshTokenExpiryDuration parses the configured refresh token
// lifetime, defaulting to 7 days.
func (c *JWTConfig) RefreshTokenExpiryDuration() time.Duration {
	return parseDurationOr(c.RefreshTokenExpiry, 7*24*time.Hour)
}

// TokenSweepIntervalDuration parses the worker's expired-token sweep
// interval, defaulting to 1 hour.
func (c *WorkerConfig) TokenSweepIntervalDuration() time.Duration {
	return parseDurationOr(c.TokenSweepInterval, time.Hour)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %q, using default %s", s, fallback)
		return fallback
	}
	return d
}
