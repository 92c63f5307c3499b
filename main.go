package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dododo1295/notetree/config"
	"github.com/dododo1295/notetree/handler"
	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/services"
	"github.com/dododo1295/notetree/usecase"
	"github.com/dododo1295/notetree/utils"

	"github.com/avast/retry-go/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}
}

// connectRetryOptions retries startup connections a few times with backoff
// so the server tolerates dependencies that come up after it.
func connectRetryOptions(ctx context.Context, name string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			utils.Logger.Warn("connection attempt failed", zap.String("target", name), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	}
}

// openStore connects the configured note store and returns it with its
// cleanup.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.NoteStore, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := repository.OpenSQLNotesRepo(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		err := retry.Do(
			func() error { return utils.InitMongoClient(ctx, cfg.ClientOptions()) },
			connectRetryOptions(ctx, "mongo")...,
		)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.SetupIndexes(utils.MongoClient.Database(cfg.DatabaseName)); err != nil {
			utils.Logger.Warn("failed to set up indexes", zap.Error(err))
		}
		cleanup := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			utils.CloseMongoClient(ctx)
		}
		return repository.GetNotesRepo(utils.MongoClient, cfg.DatabaseName), cleanup, nil
	}
}

func run() error {
	cfg := config.LoadAppConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := utils.InitLogger(cfg.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.SyncLogger()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.InitValidator()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		notesCache  usecase.ListCache
		cachePinger handler.Pinger
		revocations services.RevocationList = services.NewMemoryRevocationList()
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		err = retry.Do(
			func() error {
				var err error
				redisClient, err = services.NewRedisClient(cfg.RedisURL)
				return err
			},
			connectRetryOptions(ctx, "redis")...,
		)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		cache := services.NewNotesCache(redisClient, cfg.NotesCacheTTL)
		notesCache = cache
		cachePinger = cache
		revocations = services.NewRedisRevocationList(redisClient)
	} else {
		utils.Logger.Info("REDIS_URL not set; running without notes cache and with in-process token revocation")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Notes:          usecase.NewNotesService(store, notesCache),
		Store:          store,
		Cache:          cachePinger,
		Verifier:       services.NewJWTVerifier(cfg.JWTSecretKey, cfg.JWTIssuer, revocations),
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.Logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("store", store.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.Logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	utils.Logger.Info("Server shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
