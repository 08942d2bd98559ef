package tests

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"project-tracker/core"
)

type fakeDB struct {
	mu sync.RWMutex

	nextTaskID         int64
	nextHistoryID      int64
	nextNotificationID int64
	nextCommentID      int64

	tasks         map[int64]core.Task
	history       map[int64][]core.TaskHistory // keyed by task id
	members       map[int64]map[int64]core.ProjectMember
	notifications map[int64]core.Notification
	comments      map[int64]core.Comment

	// when set, UpdateTaskWithHistory fails without writing anything
	failUpdate error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		nextTaskID:         1,
		nextHistoryID:      1,
		nextNotificationID: 1,
		nextCommentID:      1,
		tasks:              make(map[int64]core.Task),
		history:            make(map[int64][]core.TaskHistory),
		members:            make(map[int64]map[int64]core.ProjectMember),
		notifications:      make(map[int64]core.Notification),
		comments:           make(map[int64]core.Comment),
	}
}

func cloneTask(t core.Task) core.Task {
	out := t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		out.AssigneeID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return out
}

func (db *fakeDB) Ping(context.Context) error {
	return nil
}

// tasks

func (db *fakeDB) CreateTask(_ context.Context, t core.Task) (core.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" || t.ProjectID <= 0 {
		return core.Task{}, core.ErrInvalidArgs
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	t.ID = db.nextTaskID
	db.nextTaskID++

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	db.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (db *fakeDB) GetTask(_ context.Context, id int64) (core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tasks[id]
	if !ok {
		return core.Task{}, core.ErrNotFound
	}
	return cloneTask(t), nil
}

func (db *fakeDB) ListTasks(_ context.Context, projectID int64, f core.ListTasksFilter) ([]core.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.Task, 0)
	for _, t := range db.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.AssigneeID != nil {
			if t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID {
				continue
			}
		}
		out = append(out, cloneTask(t))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	if f.Offset > len(out) {
		return []core.Task{}, nil
	}
	if f.Offset > 0 {
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (db *fakeDB) UpdateTaskWithHistory(_ context.Context, t core.Task, entries []core.TaskHistory) (core.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.failUpdate != nil {
		return core.Task{}, db.failUpdate
	}

	cur, ok := db.tasks[t.ID]
	if !ok {
		return core.Task{}, core.ErrNotFound
	}

	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = time.Now()
	db.tasks[t.ID] = cloneTask(t)

	now := time.Now()
	for _, e := range entries {
		e.ID = db.nextHistoryID
		db.nextHistoryID++
		e.CreatedAt = now
		db.history[e.TaskID] = append(db.history[e.TaskID], e)
	}

	return cloneTask(t), nil
}

func (db *fakeDB) DeleteTask(_ context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[id]; !ok {
		return core.ErrNotFound
	}
	delete(db.tasks, id)
	delete(db.history, id)
	return nil
}

// history

func (db *fakeDB) ListTaskHistory(_ context.Context, taskID int64, limit int) ([]core.TaskHistory, error) {
	if limit <= 0 {
		limit = core.HistoryPreviewLimit
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	entries := db.history[taskID]
	out := make([]core.TaskHistory, len(entries))
	copy(out, entries)

	// newest first
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})

	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (db *fakeDB) historyCount(taskID int64) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.history[taskID])
}

// membership

func (db *fakeDB) GetMember(_ context.Context, projectID, userID int64) (core.ProjectMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.members[projectID][userID]
	if !ok {
		return core.ProjectMember{}, core.ErrNotFound
	}
	return m, nil
}

func (db *fakeDB) ListMembers(_ context.Context, projectID int64) ([]core.ProjectMember, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.ProjectMember, 0, len(db.members[projectID]))
	for _, m := range db.members[projectID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (db *fakeDB) AddMember(_ context.Context, m core.ProjectMember) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.members[m.ProjectID] == nil {
		db.members[m.ProjectID] = make(map[int64]core.ProjectMember)
	}
	m.CreatedAt = time.Now()
	db.members[m.ProjectID][m.UserID] = m
	return nil
}

func (db *fakeDB) RemoveMember(_ context.Context, projectID, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.members[projectID][userID]; !ok {
		return core.ErrNotFound
	}
	delete(db.members[projectID], userID)
	return nil
}

// notifications

func (db *fakeDB) CreateNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	n.ID = db.nextNotificationID
	db.nextNotificationID++
	n.CreatedAt = time.Now()
	db.notifications[n.ID] = n
	return n, nil
}

func (db *fakeDB) ListNotifications(_ context.Context, userID int64) ([]core.Notification, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.Notification, 0)
	for _, n := range db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (db *fakeDB) MarkNotificationRead(_ context.Context, id, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	n, ok := db.notifications[id]
	if !ok || n.UserID != userID {
		return core.ErrNotFound
	}
	n.Read = true
	db.notifications[id] = n
	return nil
}

func (db *fakeDB) notificationCount(userID int64) int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	count := 0
	for _, n := range db.notifications {
		if n.UserID == userID {
			count++
		}
	}
	return count
}

// comments

func (db *fakeDB) CreateComment(_ context.Context, c core.Comment) (core.Comment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[c.TaskID]; !ok {
		return core.Comment{}, core.ErrNotFound
	}

	c.ID = db.nextCommentID
	db.nextCommentID++
	c.CreatedAt = time.Now()
	db.comments[c.ID] = c
	return c, nil
}
