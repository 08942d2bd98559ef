package core

import "context"

type Pinger interface {
	Ping(ctx context.Context) error
}

// DB is the storage port. UpdateTaskWithHistory is the one write path that
// must be transactional: the task row update and its history inserts commit
// together or not at all.
type DB interface {
	Pinger

	// tasks
	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context, projectID int64, f ListTasksFilter) ([]Task, error)
	UpdateTaskWithHistory(ctx context.Context, t Task, entries []TaskHistory) (Task, error)
	DeleteTask(ctx context.Context, id int64) error

	// history
	ListTaskHistory(ctx context.Context, taskID int64, limit int) ([]TaskHistory, error)

	// membership
	GetMember(ctx context.Context, projectID, userID int64) (ProjectMember, error)
	ListMembers(ctx context.Context, projectID int64) ([]ProjectMember, error)
	AddMember(ctx context.Context, m ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID int64) error

	// notifications
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID int64) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error

	// comments
	CreateComment(ctx context.Context, c Comment) (Comment, error)
}

type ListTasksFilter struct {
	Status     *TaskStatus
	AssigneeID *int64
	Limit      int
	Offset     int
}

// Dispatcher consumes one Event per committed mutation. Implementations must
// not block the caller on network I/O; the mutation has already succeeded by
// the time Dispatch runs and its outcome does not depend on fan-out.
type Dispatcher interface {
	Dispatch(ev Event)
}

// Directory answers membership questions for authorization. It is fail-closed:
// any lookup failure reads as "not a member".
type Directory interface {
	IsMember(ctx context.Context, projectID, userID int64) bool
	RoleOf(ctx context.Context, projectID, userID int64) (Role, bool)
}
