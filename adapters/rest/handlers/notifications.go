package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"project-tracker/adapters/rest"
	"project-tracker/core"
	"project-tracker/pkg/res"
)

func NewListNotificationsHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		items, err := svc.Notifications(ctx, rest.UserID(r))
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		if items == nil {
			items = []core.Notification{}
		}
		res.Json(w, rest.NotificationsOut{Notifications: items}, http.StatusOK)
	}
}

func NewMarkNotificationReadHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.MarkNotificationRead(ctx, rest.UserID(r), id); err != nil {
			rest.WriteErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
