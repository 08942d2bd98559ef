package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"project-tracker/adapters/rest"
	"project-tracker/core"
	"project-tracker/pkg/res"
)

func NewAddCommentHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.AddCommentIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		c, err := svc.AddComment(ctx, rest.UserID(r), id, in.Body)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, c, http.StatusCreated)
	}
}
