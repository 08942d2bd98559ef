package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"project-tracker/adapters/auth"
	"project-tracker/adapters/rest"
	"project-tracker/core"
)

func Register(mux *http.ServeMux, log *slog.Logger, svc *core.Service, verifier auth.Verifier, timeout time.Duration) {
	// ping
	mux.Handle("GET /api/ping", NewPingHandler(log, svc, timeout))

	guard := func(h http.Handler) http.Handler {
		return rest.Auth(verifier, h)
	}

	// tasks
	mux.Handle("POST /api/projects/{id}/tasks", guard(NewCreateTaskHandler(log, svc, timeout)))
	mux.Handle("GET /api/projects/{id}/tasks", guard(NewListTasksHandler(log, svc, timeout)))
	mux.Handle("GET /api/tasks/{id}", guard(NewGetTaskHandler(log, svc, timeout)))
	mux.Handle("PATCH /api/tasks/{id}", guard(NewPatchTaskHandler(log, svc, timeout)))
	mux.Handle("PUT /api/tasks/{id}/status", guard(NewChangeStatusHandler(log, svc, timeout)))
	mux.Handle("PUT /api/tasks/{id}/assignee", guard(NewAssignTaskHandler(log, svc, timeout)))
	mux.Handle("DELETE /api/tasks/{id}", guard(NewDeleteTaskHandler(log, svc, timeout)))
	mux.Handle("GET /api/tasks/{id}/history", guard(NewTaskHistoryHandler(log, svc, timeout)))

	// comments
	mux.Handle("POST /api/tasks/{id}/comments", guard(NewAddCommentHandler(log, svc, timeout)))

	// membership
	mux.Handle("POST /api/projects/{id}/members", guard(NewAddMemberHandler(log, svc, timeout)))
	mux.Handle("DELETE /api/projects/{id}/members/{userID}", guard(NewRemoveMemberHandler(log, svc, timeout)))

	// notifications
	mux.Handle("GET /api/notifications", guard(NewListNotificationsHandler(log, svc, timeout)))
	mux.Handle("PUT /api/notifications/{id}/read", guard(NewMarkNotificationReadHandler(log, svc, timeout)))
}
