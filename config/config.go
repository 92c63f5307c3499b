package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dododo1295/notetree/utils"
)

type AppConfig struct {
	Env            string
	Port           string
	Database       DatabaseConfig
	RedisURL       string
	NotesCacheTTL  time.Duration
	JWTSecretKey   string
	JWTIssuer      string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// LoadAppConfig reads the process environment. Call godotenv.Load first to pick up a .env file.
func LoadAppConfig() AppConfig {
	env := utils.GetEnvAsString("GO_ENV", "production")

	defaultOrigins := []string{"http://localhost:3000"}
	return AppConfig{
		Env:            env,
		Port:           utils.GetEnvAsString("PORT", "8080"),
		Database:       LoadDatabaseConfig(),
		RedisURL:       utils.GetEnvAsString("REDIS_URL", ""),
		NotesCacheTTL:  utils.GetEnvAsDuration("NOTES_CACHE_TTL", 5*time.Minute),
		JWTSecretKey:   utils.GetEnvAsString("JWT_SECRET_KEY", ""),
		JWTIssuer:      utils.GetEnvAsString("JWT_ISSUER", "notetree"),
		AllowedOrigins: utils.GetEnvAsList("ALLOWED_ORIGINS", defaultOrigins),
		MaxBodyBytes:   utils.GetEnvAsInt64("MAX_BODY_BYTES", 1<<20),
	}
}

// Validate reports every missing required setting at once.
func (c AppConfig) Validate() error {
	var errs []error
	if c.JWTSecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is not set"))
	}
	switch c.Database.Driver {
	case "mongo":
		if c.Database.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is not set"))
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	return errors.Join(errs...)
}
