package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"project-tracker/core"
	"project-tracker/pkg/res"
)

func NewPingHandler(log *slog.Logger, p core.Pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			log.Error("ping failed", "error", err)
			res.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		res.Json(w, map[string]string{"status": "ok"}, http.StatusOK)
	}
}
