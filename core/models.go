package core

import "time"

type TaskStatus string

const (
	StatusTODO       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusInReview   TaskStatus = "in_review"
	StatusDone       TaskStatus = "done"
)

func isValidStatus(st TaskStatus) bool {
	switch st {
	case StatusTODO, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func isValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

func isValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleManager, RoleMember:
		return true
	}
	return false
}

type Task struct {
	ID          int64        `db:"id" json:"id"`
	ProjectID   int64        `db:"project_id" json:"project_id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Status      TaskStatus   `db:"status" json:"status"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	AssigneeID  *int64       `db:"assignee_id" json:"assignee_id,omitempty"`
	CreatorID   int64        `db:"creator_id" json:"creator_id"`
	DueDate     *time.Time   `db:"due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

type ChangeType string

const (
	StatusChanged      ChangeType = "status_changed"
	AssigneeChanged    ChangeType = "assignee_changed"
	TitleChanged       ChangeType = "title_changed"
	DescriptionChanged ChangeType = "description_changed"
	PriorityChanged    ChangeType = "priority_changed"
	DueDateChanged     ChangeType = "due_date_changed"
)

// TaskHistory is one immutable field-level change record. Rows are only
// ever inserted, in the same transaction as the task update they describe.
type TaskHistory struct {
	ID        int64      `db:"id" json:"id"`
	TaskID    int64      `db:"task_id" json:"task_id"`
	Change    ChangeType `db:"change_type" json:"change_type"`
	OldValue  *string    `db:"old_value" json:"old_value"`
	NewValue  *string    `db:"new_value" json:"new_value"`
	ActorID   int64      `db:"actor_id" json:"actor_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// HistoryPreviewLimit caps the default history read; the full trail stays
// reachable with an explicit limit.
const HistoryPreviewLimit = 5

type NotificationKind string

const (
	NotificationTaskAssigned NotificationKind = "task_assigned"
)

// Notification is the durable per-user record, distinct from the live
// broadcast: it survives the recipient being offline.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	TaskID    int64            `db:"task_id" json:"task_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

type Comment struct {
	ID        int64     `db:"id" json:"id"`
	TaskID    int64     `db:"task_id" json:"task_id"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ProjectMember struct {
	ProjectID int64     `db:"project_id" json:"project_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
