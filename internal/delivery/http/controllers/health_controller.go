package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	h "seatrotation/internal/delivery/http/helpers"
)

// Pinger is satisfied by *sql.DB. A nil Pinger means the store has no
// connection to check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	Logger *slog.Logger
	Store  Pinger
}

func NewHealthController(logger *slog.Logger, store Pinger) *HealthController {
	return &HealthController{Logger: logger, Store: store}
}

// Healthz godoc
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status is ok"
// @Failure 503 {object} helpers.APIResponse "error.code: internal_error"
// @Router /healthz [get]
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if c.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := c.Store.PingContext(ctx); err != nil {
			c.Logger.ErrorContext(r.Context(), "health check failed", "err", err)
			h.WriteJSONError(w, http.StatusServiceUnavailable, h.ErrCodeInternalError, "store unavailable")
			return
		}
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
