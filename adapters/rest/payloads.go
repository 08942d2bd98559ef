package rest

import (
	"time"

	"project-tracker/core"
)

type CreateTaskIn struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

// PatchTaskIn uses pointer fields so "absent" and "empty" stay apart.
// clear_due_date unsets the due date; it cannot be combined with due_date.
type PatchTaskIn struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

type ChangeStatusIn struct {
	Status string `json:"status"`
}

type AssignTaskIn struct {
	AssigneeID *int64 `json:"assignee_id"`
}

type AddCommentIn struct {
	Body string `json:"body"`
}

type AddMemberIn struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type TaskListOut struct {
	Tasks []core.Task `json:"tasks"`
}

type HistoryOut struct {
	History []core.TaskHistory `json:"history"`
}

type NotificationsOut struct {
	Notifications []core.Notification `json:"notifications"`
}
