package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"project-tracker/core"
)

type DB struct {
	log  *slog.Logger
	conn *sqlx.DB
}

func New(log *slog.Logger, address string) (*DB, error) {
	conn, err := sqlx.Connect("pgx", address)
	if err != nil {
		log.Error("connection problem", "address", address, "error", err)
		return nil, err
	}
	return &DB{log: log, conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Tasks

const taskColumns = `id, project_id, title, COALESCE(description, '') AS description, status, priority,
	assignee_id, creator_id, due_date, created_at, updated_at`

func (db *DB) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" || t.ProjectID <= 0 {
		return core.Task{}, core.ErrInvalidArgs
	}

	const q = `
		INSERT INTO tasks(project_id, title, description, status, priority, assignee_id, creator_id, due_date)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING ` + taskColumns + `;
	`

	var out core.Task
	err := db.conn.GetContext(ctx, &out, q,
		t.ProjectID, t.Title, strings.TrimSpace(t.Description),
		string(t.Status), string(t.Priority), t.AssigneeID, t.CreatorID, t.DueDate)
	if err != nil {
		if isCheckViolation(err) {
			return core.Task{}, core.ErrInvalidArgs
		}
		return core.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return out, nil
}

func (db *DB) GetTask(ctx context.Context, id int64) (core.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1;`

	var t core.Task
	if err := db.conn.GetContext(ctx, &t, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, core.ErrNotFound
		}
		return core.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (db *DB) ListTasks(ctx context.Context, projectID int64, f core.ListTasksFilter) ([]core.Task, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1`)
	args = append(args, projectID)
	n := 2

	if f.Status != nil {
		args = append(args, string(*f.Status))
		sb.WriteString(fmt.Sprintf(" AND status = $%d", n))
		n++
	}
	if f.AssigneeID != nil {
		args = append(args, *f.AssigneeID)
		sb.WriteString(fmt.Sprintf(" AND assignee_id = $%d", n))
		n++
	}

	args = append(args, f.Limit, f.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", n, n+1))

	var out []core.Task
	if err := db.conn.SelectContext(ctx, &out, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

// UpdateTaskWithHistory commits the task row and its history entries as one
// transaction. On any failure the transaction rolls back and no history row
// survives, so a history entry existing always means the change committed.
func (db *DB) UpdateTaskWithHistory(ctx context.Context, t core.Task, entries []core.TaskHistory) (core.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.ID <= 0 || t.Title == "" {
		return core.Task{}, core.ErrInvalidArgs
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return core.Task{}, fmt.Errorf("begin update task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		UPDATE tasks
		SET title = $2,
		    description = NULLIF($3, ''),
		    status = $4,
		    priority = $5,
		    assignee_id = $6,
		    due_date = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + taskColumns + `;
	`

	var out core.Task
	err = tx.GetContext(ctx, &out, q,
		t.ID, t.Title, strings.TrimSpace(t.Description),
		string(t.Status), string(t.Priority), t.AssigneeID, t.DueDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, core.ErrNotFound
		}
		if isCheckViolation(err) {
			return core.Task{}, core.ErrInvalidArgs
		}
		return core.Task{}, fmt.Errorf("update task: %w", err)
	}

	const hq = `
		INSERT INTO task_history(task_id, change_type, old_value, new_value, actor_id)
		VALUES ($1, $2, $3, $4, $5);
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, hq, e.TaskID, string(e.Change), e.OldValue, e.NewValue, e.ActorID); err != nil {
			return core.Task{}, fmt.Errorf("insert task history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Task{}, fmt.Errorf("commit update task: %w", err)
	}
	return out, nil
}

func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	const q = `DELETE FROM tasks WHERE id = $1;`

	res, err := db.conn.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

// History

func (db *DB) ListTaskHistory(ctx context.Context, taskID int64, limit int) ([]core.TaskHistory, error) {
	if limit <= 0 {
		limit = core.HistoryPreviewLimit
	}

	const q = `
		SELECT id, task_id, change_type, old_value, new_value, actor_id, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2;
	`

	var out []core.TaskHistory
	if err := db.conn.SelectContext(ctx, &out, q, taskID, limit); err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}
	return out, nil
}

// Membership

func (db *DB) GetMember(ctx context.Context, projectID, userID int64) (core.ProjectMember, error) {
	const q = `
		SELECT project_id, user_id, role, created_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2;
	`

	var m core.ProjectMember
	if err := db.conn.GetContext(ctx, &m, q, projectID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ProjectMember{}, core.ErrNotFound
		}
		return core.ProjectMember{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (db *DB) ListMembers(ctx context.Context, projectID int64) ([]core.ProjectMember, error) {
	const q = `
		SELECT project_id, user_id, role, created_at
		FROM project_members
		WHERE project_id = $1
		ORDER BY created_at ASC;
	`

	var out []core.ProjectMember
	if err := db.conn.SelectContext(ctx, &out, q, projectID); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

func (db *DB) AddMember(ctx context.Context, m core.ProjectMember) error {
	const q = `
		INSERT INTO project_members(project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role;
	`

	if _, err := db.conn.ExecContext(ctx, q, m.ProjectID, m.UserID, string(m.Role)); err != nil {
		if isCheckViolation(err) {
			return core.ErrInvalidArgs
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (db *DB) RemoveMember(ctx context.Context, projectID, userID int64) error {
	const q = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2;`

	res, err := db.conn.ExecContext(ctx, q, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Notifications

func (db *DB) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	const q = `
		INSERT INTO notifications(user_id, task_id, kind, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, task_id, kind, message, read, created_at;
	`

	var out core.Notification
	err := db.conn.GetContext(ctx, &out, q, n.UserID, n.TaskID, string(n.Kind), n.Message)
	if err != nil {
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return out, nil
}

func (db *DB) ListNotifications(ctx context.Context, userID int64) ([]core.Notification, error) {
	const q = `
		SELECT id, user_id, task_id, kind, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC;
	`

	var out []core.Notification
	if err := db.conn.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	const q = `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2;`

	res, err := db.conn.ExecContext(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Comments

func (db *DB) CreateComment(ctx context.Context, c core.Comment) (core.Comment, error) {
	const q = `
		INSERT INTO comments(task_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, task_id, author_id, body, created_at;
	`

	var out core.Comment
	err := db.conn.GetContext(ctx, &out, q, c.TaskID, c.AuthorID, c.Body)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Comment{}, core.ErrNotFound
		}
		return core.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return out, nil
}

// pg helpers

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
