package config

import (
	"time"

	"github.com/dododo1295/notetree/utils"

	"go.mongodb.org/mongo-driver/mongo/options"
)

type DatabaseConfig struct {
	Driver          string // "mongo" or "sqlite"
	URI             string
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	DatabaseName    string
	RetryWrites     bool
	SQLitePath      string
}

func LoadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          utils.GetEnvAsString("STORE_DRIVER", "mongo"),
		URI:             utils.GetEnvAsString("MONGO_URI", "mongodb://localhost:27017"),
		MaxPoolSize:     utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 100),
		MinPoolSize:     utils.GetEnvAsUint64("MONGO_MIN_POOL_SIZE", 10),
		MaxConnIdleTime: utils.GetEnvAsDuration("MONGO_MAX_CONN_IDLE_TIME", 60*time.Second),
		DatabaseName:    utils.GetEnvAsString("MONGO_DB", "notetree"),
		RetryWrites:     utils.GetEnvAsBool("MONGO_RETRY_WRITES", true),
		SQLitePath:      utils.GetEnvAsString("SQLITE_PATH", "notetree.db"),
	}
}

// ClientOptions turns the pool settings into mongo driver options.
func (c DatabaseConfig) ClientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.URI).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize).
		SetMaxConnIdleTime(c.MaxConnIdleTime).
		SetRetryWrites(c.RetryWrites)
}
