package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports store and cache reachability plus host load. It
// answers 503 when the store is down; a cache outage only degrades status.
func HealthHandler(c *gin.Context, store repository.NoteStore, cache Pinger) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	stats := model.HealthStats{
		Status:    "ok",
		Store:     store.Name(),
		StoreOK:   true,
		CheckedAt: time.Now().UTC(),
	}
	stats.System.CPUPercent = utils.GetCPUUsage()
	stats.System.MemoryPercent = utils.GetMemoryUsage()

	if err := store.Ping(ctx); err != nil {
		utils.Logger.Warn("health check: store unreachable", zap.Error(err))
		stats.StoreOK = false
		stats.Status = "unavailable"
	}

	if cache != nil {
		ok := cache.Ping(ctx) == nil
		stats.CacheOK = &ok
		if !ok && stats.StoreOK {
			stats.Status = "degraded"
		}
	}

	status := http.StatusOK
	if !stats.StoreOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
