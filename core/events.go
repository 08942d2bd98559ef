package core

import "time"

type EventKind string

const (
	EventTaskCreated       EventKind = "task_created"
	EventTaskUpdated       EventKind = "task_updated"
	EventTaskStatusChanged EventKind = "task_status_changed"
	EventTaskAssigned      EventKind = "task_assigned"
	EventTaskDeleted       EventKind = "task_deleted"
	EventCommentAdded      EventKind = "comment_added"
	EventMemberJoined      EventKind = "member_joined"
	EventMemberLeft        EventKind = "member_left"
	EventUserConnected     EventKind = "user_connected"
	EventUserDisconnected  EventKind = "user_disconnected"
	EventUserTyping        EventKind = "user_typing"
)

// Event is the transient summary of one committed mutation (or one live-channel
// fact, for presence and typing). It is built exactly once per mutation, after
// commit, and fans out to the project room as-is. It is never persisted: the
// task row and its history entries are the durable record, the event is only
// the notification that they exist.
type Event struct {
	Kind      EventKind `json:"event"`
	ProjectID int64     `json:"project_id"`
	ActorID   int64     `json:"actor_id"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// TaskPayload carries the post-mutation snapshot so clients can update their
// view without a follow-up fetch. Changed lists the field names touched by
// the mutation (empty for create/delete).
type TaskPayload struct {
	Task    Task     `json:"task"`
	Changed []string `json:"changed,omitempty"`
}

// TaskRefPayload is used for deletes, where no snapshot survives.
type TaskRefPayload struct {
	TaskID int64 `json:"task_id"`
}

type CommentPayload struct {
	Comment Comment `json:"comment"`
}

type MemberPayload struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role,omitempty"`
}

type PresencePayload struct {
	UserID int64 `json:"user_id"`
}

type TypingPayload struct {
	TaskID   int64 `json:"task_id"`
	IsTyping bool  `json:"is_typing"`
}
