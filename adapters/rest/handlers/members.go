package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"project-tracker/adapters/rest"
	"project-tracker/core"
	"project-tracker/pkg/res"
)

func parseRole(s string) (core.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return core.RoleOwner, true
	case "manager":
		return core.RoleManager, true
	case "member", "":
		return core.RoleMember, true
	default:
		return "", false
	}
}

func NewAddMemberHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}

		var in rest.AddMemberIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		role, ok := parseRole(in.Role)
		if !ok {
			res.Error(w, "invalid role", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.AddMember(ctx, rest.UserID(r), projectID, in.UserID, role); err != nil {
			rest.WriteErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func NewRemoveMemberHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}
		userID, ok := pathID(r, "userID")
		if !ok {
			res.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.RemoveMember(ctx, rest.UserID(r), projectID, userID); err != nil {
			rest.WriteErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
