package core

import (
	"context"
	"errors"
	"log/slog"
)

// DBDirectory implements Directory over the membership rows in the store.
// Lookup errors other than "no such row" are logged and still answered with
// "not a member" so that a flaky store can never widen access.
type DBDirectory struct {
	log *slog.Logger
	db  DB
}

func NewDirectory(log *slog.Logger, db DB) *DBDirectory {
	return &DBDirectory{log: log, db: db}
}

func (d *DBDirectory) IsMember(ctx context.Context, projectID, userID int64) bool {
	_, ok := d.RoleOf(ctx, projectID, userID)
	return ok
}

func (d *DBDirectory) RoleOf(ctx context.Context, projectID, userID int64) (Role, bool) {
	m, err := d.db.GetMember(ctx, projectID, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			d.log.Error("membership lookup failed", "project_id", projectID, "user_id", userID, "error", err)
		}
		return "", false
	}
	return m.Role, true
}
