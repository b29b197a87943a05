package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/desk-allocation/internal/config"
	"github.com/iliyamo/desk-allocation/internal/repository"
)

// OccupancyHandler serves the per-floor occupancy report.  The report
// is an aggregate over the whole desk table, so it is cached briefly in
// Redis; a slightly stale ratio is fine for a dashboard.  With no Redis
// the handler degrades to hitting the database every time.
type OccupancyHandler struct {
	Desks *repository.DeskRepo
	RDB   *redis.Client
	Cache config.OccupancyCacheConfig
}

func NewOccupancyHandler(desks *repository.DeskRepo, rdb *redis.Client, cache config.OccupancyCacheConfig) *OccupancyHandler {
	return &OccupancyHandler{Desks: desks, RDB: rdb, Cache: cache}
}

// Report handles GET /v1/occupancy.
func (h *OccupancyHandler) Report(c echo.Context) error {
	ctx := c.Request().Context()

	if h.cacheEnabled() {
		if cached, err := h.RDB.Get(ctx, h.Cache.Key).Bytes(); err == nil {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, cached)
		}
	}

	report, err := h.Desks.OccupancyByFloor(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if report == nil {
		report = []repository.FloorOccupancy{}
	}

	if h.cacheEnabled() {
		if body, err := json.Marshal(report); err == nil {
			// Best effort; a failed SET just means the next request
			// recomputes.
			_ = h.RDB.Set(ctx, h.Cache.Key, body, h.Cache.TTL).Err()
		}
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return c.JSON(http.StatusOK, report)
}

func (h *OccupancyHandler) cacheEnabled() bool {
	return h.Cache.Enabled && h.RDB != nil
}
