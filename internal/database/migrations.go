package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// AddIndexes adds the indexes the task listing queries rely on. It is safe to
// run repeatedly.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Employees list their own tasks, optionally filtered by status
		{"tasks", "idx_tasks_assignee_status", "assignee_id, status"},
		// Listings are ordered by due date
		{"tasks", "idx_tasks_due_date", "due_date, id"},
		{"users", "idx_users_role", "role"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}
