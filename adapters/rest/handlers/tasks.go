package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-tracker/adapters/rest"
	"project-tracker/core"
	"project-tracker/pkg/res"
)

func parseStatus(s string) (core.TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return core.StatusTODO, true
	case "in_progress":
		return core.StatusInProgress, true
	case "in_review":
		return core.StatusInReview, true
	case "done":
		return core.StatusDone, true
	default:
		return "", false
	}
}

func parsePriority(s string) (core.TaskPriority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return core.PriorityLow, true
	case "medium":
		return core.PriorityMedium, true
	case "high":
		return core.PriorityHigh, true
	default:
		return "", false
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func NewCreateTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}

		var in rest.CreateTaskIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		create := core.CreateTaskIn{
			Title:       in.Title,
			Description: in.Description,
			AssigneeID:  in.AssigneeID,
			DueDate:     in.DueDate,
		}
		if in.Priority != "" {
			p, ok := parsePriority(in.Priority)
			if !ok {
				res.Error(w, "invalid priority", http.StatusBadRequest)
				return
			}
			create.Priority = p
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.CreateTask(ctx, rest.UserID(r), projectID, create)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, t, http.StatusCreated)
	}
}

func NewGetTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.GetTask(ctx, rest.UserID(r), id)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, t, http.StatusOK)
	}
}

func NewListTasksHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}

		q := r.URL.Query()
		var f core.ListTasksFilter

		if s := q.Get("status"); s != "" {
			st, ok := parseStatus(s)
			if !ok {
				res.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			f.Status = &st
		}
		if v := q.Get("assignee_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				res.Error(w, "invalid assignee_id", http.StatusBadRequest)
				return
			}
			f.AssigneeID = &id
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				res.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			f.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				res.Error(w, "invalid offset", http.StatusBadRequest)
				return
			}
			f.Offset = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		tasks, err := svc.ListTasks(ctx, rest.UserID(r), projectID, f)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		if tasks == nil {
			tasks = []core.Task{}
		}
		res.Json(w, rest.TaskListOut{Tasks: tasks}, http.StatusOK)
	}
}

func NewPatchTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.PatchTaskIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		patch := core.TaskPatch{
			Title:        in.Title,
			Description:  in.Description,
			DueDate:      in.DueDate,
			ClearDueDate: in.ClearDueDate,
		}
		if in.Priority != nil {
			p, ok := parsePriority(*in.Priority)
			if !ok {
				res.Error(w, "invalid priority", http.StatusBadRequest)
				return
			}
			patch.Priority = &p
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.PatchTask(ctx, rest.UserID(r), id, patch)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, t, http.StatusOK)
	}
}

func NewChangeStatusHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.ChangeStatusIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		st, ok := parseStatus(in.Status)
		if !ok {
			res.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.ChangeStatus(ctx, rest.UserID(r), id, st)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, t, http.StatusOK)
	}
}

func NewAssignTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var in rest.AssignTaskIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			res.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if in.AssigneeID != nil && *in.AssigneeID <= 0 {
			res.Error(w, "invalid assignee_id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		t, err := svc.AssignTask(ctx, rest.UserID(r), id, in.AssigneeID)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		res.Json(w, t, http.StatusOK)
	}
}

func NewDeleteTaskHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.DeleteTask(ctx, rest.UserID(r), id); err != nil {
			rest.WriteErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func NewTaskHistoryHandler(_ *slog.Logger, svc *core.Service, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			res.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				res.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		entries, err := svc.TaskHistory(ctx, rest.UserID(r), id, limit)
		if err != nil {
			rest.WriteErr(w, err)
			return
		}
		if entries == nil {
			entries = []core.TaskHistory{}
		}
		res.Json(w, rest.HistoryOut{History: entries}, http.StatusOK)
	}
}
