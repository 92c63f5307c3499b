package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/utils"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MockableTime is an interface for mocking time.Now() in tests
type MockableTime interface {
	Now() time.Time
}

// FixedTime implements MockableTime using a fixed time
type FixedTime struct {
	Fixed time.Time
}

func (ft FixedTime) Now() time.Time {
	return ft.Fixed
}

// StepClock returns Start, then advances by Step on every call, so
// consecutive writes get strictly increasing timestamps.
type StepClock struct {
	mu    sync.Mutex
	Start time.Time
	Step  time.Duration
	calls int
}

func NewStepClock(start time.Time) *StepClock {
	return &StepClock{Start: start, Step: time.Millisecond}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Start.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}

var envOnce sync.Once

// SetupTestEnvironment loads an optional .env.test from the module root and
// forces GO_ENV=test.
func SetupTestEnvironment() {
	envOnce.Do(func() {
		if rootDir := findProjectRoot(); rootDir != "" {
			envPath := filepath.Join(rootDir, ".env.test")
			if _, err := os.Stat(envPath); err == nil {
				if err := godotenv.Load(envPath); err != nil {
					utils.Logger.Warn("Could not load .env.test", zap.Error(err))
				}
			}
		}
		os.Setenv("GO_ENV", "test")
	})
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NewSQLStore returns an empty in-memory note store closed at test end.
func NewSQLStore(t *testing.T) *repository.SQLNotesRepo {
	t.Helper()
	store, err := repository.OpenSQLNotesRepo("file::memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Warning: Failed to close sqlite store: %v", err)
		}
	})
	return store
}

// SetupTestDB connects to the MongoDB named by TEST_MONGO_URI and returns a
// throwaway database dropped at test end. The test is skipped when the
// variable is unset.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	SetupTestEnvironment()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 10)).
		SetMaxConnIdleTime(30 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		t.Fatalf("Failed to ping MongoDB: %v", err)
	}

	db := client.Database("notetree_test_" + repository.NewNoteID())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := db.Drop(ctx); err != nil {
			t.Logf("Warning: Failed to drop test database %s: %v", db.Name(), err)
		}
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Warning: Failed to disconnect: %v", err)
		}
	})

	return db
}
