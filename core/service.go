package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Service is the sole writer of task state. Every mutation authorizes against
// the Directory, commits the task row together with its history entries, and
// only then hands one Event to the Dispatcher. Fan-out failures never reach
// the caller: once committed, the mutation is reported as success.
type Service struct {
	log      *slog.Logger
	db       DB
	dir      Directory
	dispatch Dispatcher
}

func NewService(log *slog.Logger, db DB, dir Directory, dispatch Dispatcher) *Service {
	return &Service{
		log:      log,
		db:       db,
		dir:      dir,
		dispatch: dispatch,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func canManage(r Role) bool {
	return r == RoleOwner || r == RoleManager
}

// Tasks

type CreateTaskIn struct {
	Title       string
	Description string
	Priority    TaskPriority
	AssigneeID  *int64
	DueDate     *time.Time
}

func (s *Service) CreateTask(ctx context.Context, actorID, projectID int64, in CreateTaskIn) (Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if projectID <= 0 || in.Title == "" {
		return Task{}, ErrInvalidArgs
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !isValidPriority(in.Priority) {
		return Task{}, ErrInvalidArgs
	}

	if !s.dir.IsMember(ctx, projectID, actorID) {
		return Task{}, ErrForbidden
	}
	if in.AssigneeID != nil && !s.dir.IsMember(ctx, projectID, *in.AssigneeID) {
		return Task{}, ErrInvalidArgs
	}

	t, err := s.db.CreateTask(ctx, Task{
		ProjectID:   projectID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Status:      StatusTODO,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		CreatorID:   actorID,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return Task{}, err
	}

	if t.AssigneeID != nil {
		s.notifyAssignee(ctx, t, actorID)
	}
	s.dispatch.Dispatch(Event{
		Kind:      EventTaskCreated,
		ProjectID: t.ProjectID,
		ActorID:   actorID,
		At:        t.CreatedAt,
		Payload:   TaskPayload{Task: t},
	})
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, actorID, taskID int64) (Task, error) {
	if taskID <= 0 {
		return Task{}, ErrInvalidArgs
	}
	t, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !s.dir.IsMember(ctx, t.ProjectID, actorID) {
		return Task{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, actorID, projectID int64, f ListTasksFilter) ([]Task, error) {
	if projectID <= 0 || f.Limit < 0 || f.Offset < 0 {
		return nil, ErrInvalidArgs
	}
	if f.Status != nil && !isValidStatus(*f.Status) {
		return nil, ErrInvalidArgs
	}
	if !s.dir.IsMember(ctx, projectID, actorID) {
		return nil, ErrForbidden
	}
	return s.db.ListTasks(ctx, projectID, f)
}

// TaskPatch carries requested field edits; nil means "leave as is".
// ClearDueDate distinguishes "unset the due date" from "don't touch it".
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate
}

// PatchTask applies field edits as one atomic unit. Each field whose value
// actually differs yields one history entry; a patch that changes nothing is
// a successful no-op with no write, no history and no broadcast.
func (s *Service) PatchTask(ctx context.Context, actorID, taskID int64, p TaskPatch) (Task, error) {
	if taskID <= 0 || p.empty() {
		return Task{}, ErrInvalidArgs
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Task{}, ErrInvalidArgs
	}
	if p.Priority != nil && !isValidPriority(*p.Priority) {
		return Task{}, ErrInvalidArgs
	}
	if p.DueDate != nil && p.ClearDueDate {
		return Task{}, ErrInvalidArgs
	}

	cur, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	role, ok := s.dir.RoleOf(ctx, cur.ProjectID, actorID)
	if !ok {
		return Task{}, ErrForbidden
	}
	if !canManage(role) && cur.CreatorID != actorID {
		return Task{}, ErrForbidden
	}

	next := cur
	var (
		entries []TaskHistory
		changed []string
	)

	if p.Title != nil {
		if title := strings.TrimSpace(*p.Title); title != cur.Title {
			next.Title = title
			entries = append(entries, historyEntry(cur.ID, TitleChanged, strPtr(cur.Title), strPtr(title), actorID))
			changed = append(changed, "title")
		}
	}
	if p.Description != nil {
		if desc := strings.TrimSpace(*p.Description); desc != cur.Description {
			next.Description = desc
			entries = append(entries, historyEntry(cur.ID, DescriptionChanged, strPtr(cur.Description), strPtr(desc), actorID))
			changed = append(changed, "description")
		}
	}
	if p.Priority != nil && *p.Priority != cur.Priority {
		next.Priority = *p.Priority
		entries = append(entries, historyEntry(cur.ID, PriorityChanged, strPtr(string(cur.Priority)), strPtr(string(*p.Priority)), actorID))
		changed = append(changed, "priority")
	}
	if p.DueDate != nil && !timePtrEqual(p.DueDate, cur.DueDate) {
		next.DueDate = p.DueDate
		entries = append(entries, historyEntry(cur.ID, DueDateChanged, timeStr(cur.DueDate), timeStr(p.DueDate), actorID))
		changed = append(changed, "due_date")
	}
	if p.ClearDueDate && cur.DueDate != nil {
		next.DueDate = nil
		entries = append(entries, historyEntry(cur.ID, DueDateChanged, timeStr(cur.DueDate), nil, actorID))
		changed = append(changed, "due_date")
	}

	if len(entries) == 0 {
		return cur, nil
	}

	updated, err := s.db.UpdateTaskWithHistory(ctx, next, entries)
	if err != nil {
		return Task{}, err
	}

	s.dispatch.Dispatch(Event{
		Kind:      EventTaskUpdated,
		ProjectID: updated.ProjectID,
		ActorID:   actorID,
		At:        updated.UpdatedAt,
		Payload:   TaskPayload{Task: updated, Changed: changed},
	})
	return updated, nil
}

// ChangeStatus moves a task to any of the four statuses; no transition graph
// is enforced. Setting the current status again is a successful no-op.
func (s *Service) ChangeStatus(ctx context.Context, actorID, taskID int64, st TaskStatus) (Task, error) {
	if taskID <= 0 || !isValidStatus(st) {
		return Task{}, ErrInvalidArgs
	}

	cur, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !s.dir.IsMember(ctx, cur.ProjectID, actorID) {
		return Task{}, ErrForbidden
	}
	if cur.Status == st {
		return cur, nil
	}

	next := cur
	next.Status = st
	entry := historyEntry(cur.ID, StatusChanged, strPtr(string(cur.Status)), strPtr(string(st)), actorID)

	updated, err := s.db.UpdateTaskWithHistory(ctx, next, []TaskHistory{entry})
	if err != nil {
		return Task{}, err
	}

	s.dispatch.Dispatch(Event{
		Kind:      EventTaskStatusChanged,
		ProjectID: updated.ProjectID,
		ActorID:   actorID,
		At:        updated.UpdatedAt,
		Payload:   TaskPayload{Task: updated, Changed: []string{"status"}},
	})
	return updated, nil
}

// AssignTask sets or clears the assignee. Allowed for owners, managers and
// the task's creator. Reassigning to the current assignee is a no-op: no
// history entry, no notification, no broadcast.
func (s *Service) AssignTask(ctx context.Context, actorID, taskID int64, assigneeID *int64) (Task, error) {
	if taskID <= 0 {
		return Task{}, ErrInvalidArgs
	}

	cur, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	role, ok := s.dir.RoleOf(ctx, cur.ProjectID, actorID)
	if !ok {
		return Task{}, ErrForbidden
	}
	if !canManage(role) && cur.CreatorID != actorID {
		return Task{}, ErrForbidden
	}
	if assigneeID != nil && !s.dir.IsMember(ctx, cur.ProjectID, *assigneeID) {
		return Task{}, ErrInvalidArgs
	}
	if int64PtrEqual(cur.AssigneeID, assigneeID) {
		return cur, nil
	}

	next := cur
	next.AssigneeID = assigneeID
	entry := historyEntry(cur.ID, AssigneeChanged, int64Str(cur.AssigneeID), int64Str(assigneeID), actorID)

	updated, err := s.db.UpdateTaskWithHistory(ctx, next, []TaskHistory{entry})
	if err != nil {
		return Task{}, err
	}

	if updated.AssigneeID != nil {
		s.notifyAssignee(ctx, updated, actorID)
	}
	s.dispatch.Dispatch(Event{
		Kind:      EventTaskAssigned,
		ProjectID: updated.ProjectID,
		ActorID:   actorID,
		At:        updated.UpdatedAt,
		Payload:   TaskPayload{Task: updated, Changed: []string{"assignee"}},
	})
	return updated, nil
}

func (s *Service) DeleteTask(ctx context.Context, actorID, taskID int64) error {
	if taskID <= 0 {
		return ErrInvalidArgs
	}

	cur, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	role, ok := s.dir.RoleOf(ctx, cur.ProjectID, actorID)
	if !ok || !canManage(role) {
		return ErrForbidden
	}

	if err := s.db.DeleteTask(ctx, taskID); err != nil {
		return err
	}

	s.dispatch.Dispatch(Event{
		Kind:      EventTaskDeleted,
		ProjectID: cur.ProjectID,
		ActorID:   actorID,
		At:        time.Now().UTC(),
		Payload:   TaskRefPayload{TaskID: cur.ID},
	})
	return nil
}

// History

func (s *Service) TaskHistory(ctx context.Context, actorID, taskID int64, limit int) ([]TaskHistory, error) {
	if taskID <= 0 {
		return nil, ErrInvalidArgs
	}
	if limit <= 0 {
		limit = HistoryPreviewLimit
	}

	t, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !s.dir.IsMember(ctx, t.ProjectID, actorID) {
		return nil, ErrForbidden
	}
	return s.db.ListTaskHistory(ctx, taskID, limit)
}

// Comments

func (s *Service) AddComment(ctx context.Context, actorID, taskID int64, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if taskID <= 0 || body == "" {
		return Comment{}, ErrInvalidArgs
	}

	t, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		return Comment{}, err
	}
	if !s.dir.IsMember(ctx, t.ProjectID, actorID) {
		return Comment{}, ErrForbidden
	}

	c, err := s.db.CreateComment(ctx, Comment{TaskID: taskID, AuthorID: actorID, Body: body})
	if err != nil {
		return Comment{}, err
	}

	s.dispatch.Dispatch(Event{
		Kind:      EventCommentAdded,
		ProjectID: t.ProjectID,
		ActorID:   actorID,
		At:        c.CreatedAt,
		Payload:   CommentPayload{Comment: c},
	})
	return c, nil
}

// Membership

func (s *Service) AddMember(ctx context.Context, actorID, projectID, userID int64, role Role) error {
	if projectID <= 0 || userID <= 0 || !isValidRole(role) {
		return ErrInvalidArgs
	}

	actorRole, ok := s.dir.RoleOf(ctx, projectID, actorID)
	if !ok || !canManage(actorRole) {
		return ErrForbidden
	}
	// only an owner can grant ownership
	if role == RoleOwner && actorRole != RoleOwner {
		return ErrForbidden
	}

	if err := s.db.AddMember(ctx, ProjectMember{ProjectID: projectID, UserID: userID, Role: role}); err != nil {
		return err
	}

	s.dispatch.Dispatch(Event{
		Kind:      EventMemberJoined,
		ProjectID: projectID,
		ActorID:   actorID,
		At:        time.Now().UTC(),
		Payload:   MemberPayload{UserID: userID, Role: role},
	})
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, actorID, projectID, userID int64) error {
	if projectID <= 0 || userID <= 0 {
		return ErrInvalidArgs
	}

	actorRole, ok := s.dir.RoleOf(ctx, projectID, actorID)
	if !ok || !canManage(actorRole) {
		return ErrForbidden
	}
	targetRole, ok := s.dir.RoleOf(ctx, projectID, userID)
	if !ok {
		return ErrNotFound
	}
	if targetRole == RoleOwner && actorRole != RoleOwner {
		return ErrForbidden
	}

	if err := s.db.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}

	s.dispatch.Dispatch(Event{
		Kind:      EventMemberLeft,
		ProjectID: projectID,
		ActorID:   actorID,
		At:        time.Now().UTC(),
		Payload:   MemberPayload{UserID: userID},
	})
	return nil
}

// Notifications

func (s *Service) Notifications(ctx context.Context, userID int64) ([]Notification, error) {
	if userID <= 0 {
		return nil, ErrInvalidArgs
	}
	return s.db.ListNotifications(ctx, userID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	if userID <= 0 || notificationID <= 0 {
		return ErrInvalidArgs
	}
	return s.db.MarkNotificationRead(ctx, notificationID, userID)
}

// NotifyProjectMembers lets services outside the mutation engine publish a
// domain event to a project room without touching task state.
func (s *Service) NotifyProjectMembers(projectID int64, kind EventKind, actorID int64, payload any) {
	s.dispatch.Dispatch(Event{
		Kind:      kind,
		ProjectID: projectID,
		ActorID:   actorID,
		At:        time.Now().UTC(),
		Payload:   payload,
	})
}

// The mutation has already committed when the notification insert runs, so a
// failure here is logged and swallowed: the durable record of the change is
// the task row plus its history, not the notification.
func (s *Service) notifyAssignee(ctx context.Context, t Task, actorID int64) {
	_, err := s.db.CreateNotification(ctx, Notification{
		UserID:  *t.AssigneeID,
		TaskID:  t.ID,
		Kind:    NotificationTaskAssigned,
		Message: fmt.Sprintf("task #%d %q was assigned to you", t.ID, t.Title),
	})
	if err != nil {
		s.log.Error("create assignee notification failed",
			"task_id", t.ID, "assignee_id", *t.AssigneeID, "actor_id", actorID, "error", err)
	}
}

// helpers

func historyEntry(taskID int64, ct ChangeType, oldV, newV *string, actorID int64) TaskHistory {
	return TaskHistory{
		TaskID:   taskID,
		Change:   ct,
		OldValue: oldV,
		NewValue: newV,
		ActorID:  actorID,
	}
}

func strPtr(v string) *string {
	return &v
}

func int64Str(v *int64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatInt(*v, 10)
	return &s
}

func timeStr(v *time.Time) *string {
	if v == nil {
		return nil
	}
	s := v.UTC().Format(time.RFC3339)
	return &s
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
