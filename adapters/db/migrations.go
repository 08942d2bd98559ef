package db

import (
	_ "embed"
	"fmt"
)

//go:embed migrations/01_create_tasks.up.sql
var createTasksUp string

//go:embed migrations/02_create_task_history.up.sql
var createTaskHistoryUp string

//go:embed migrations/03_create_project_members.up.sql
var createProjectMembersUp string

//go:embed migrations/04_create_notifications.up.sql
var createNotificationsUp string

//go:embed migrations/05_create_comments.up.sql
var createCommentsUp string

func (db *DB) Migrate() error {
	db.log.Debug("running migrations")

	steps := []struct {
		name string
		sql  string
	}{
		{"tasks", createTasksUp},
		{"task_history", createTaskHistoryUp},
		{"project_members", createProjectMembersUp},
		{"notifications", createNotificationsUp},
		{"comments", createCommentsUp},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("apply %s migration: %w", step.name, err)
		}
	}

	db.log.Debug("migrations finished")
	return nil
}
