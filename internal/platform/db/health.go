package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type poolStatus struct {
	Total    int32  `json:"total_conns"`
	Idle     int32  `json:"idle_conns"`
	InUse    int32  `json:"in_use_conns"`
	Max      int32  `json:"max_conns"`
	Acquires int64  `json:"acquire_count"`
	WaitTime string `json:"acquire_wait"`
}

func snapshot(pool *pgxpool.Pool) poolStatus {
	s := pool.Stat()
	return poolStatus{
		Total:    s.TotalConns(),
		Idle:     s.IdleConns(),
		InUse:    s.AcquiredConns(),
		Max:      s.MaxConns(),
		Acquires: s.AcquireCount(),
		WaitTime: s.AcquireDuration().String(),
	}
}

// HealthHandler reports database reachability and pool pressure.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   snapshot(pool),
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"status": "healthy",
			"pool":   snapshot(pool),
		})
	}
}
