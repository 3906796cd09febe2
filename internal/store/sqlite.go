package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/pgportal/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceNotifications swaps the cached notification list for ns,
// preserving the server's ordering.
func (s *SQLiteStore) ReplaceNotifications(
	ctx context.Context,
	ns []model.Notification,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO notifications (
			id, message, category, progress_update_id,
			read, read_at, created_at, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing notification insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range ns {
		var readAt interface{}
		if n.ReadAt != nil {
			readAt = n.ReadAt.UTC()
		}
		_, err := stmt.ExecContext(ctx,
			n.ID, n.Message, n.Category, n.ProgressUpdateID,
			boolToInt(n.Read), readAt, n.CreatedAt.UTC(), i,
		)
		if err != nil {
			return fmt.Errorf("caching notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// GetNotifications returns the cached notifications in server order.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
) ([]model.Notification, error) {
	var ns []model.Notification
	err := s.db.SelectContext(ctx, &ns, `
		SELECT id, message, category, progress_update_id, read, read_at, created_at
		FROM notifications
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return ns, nil
}

// ReplaceProgressUpdates swaps the cached progress update list for us.
func (s *SQLiteStore) ReplaceProgressUpdates(
	ctx context.Context,
	us []model.ProgressUpdate,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM progress_updates"); err != nil {
		return fmt.Errorf("clearing progress updates: %w", err)
	}

	const query = `
		INSERT OR REPLACE INTO progress_updates (
			id, student_id, student_name, title, description,
			status, submitted_at, updated_at
		) VALUES (
			:id, :student_id, :student_name, :title, :description,
			:status, :submitted_at, :updated_at
		)`

	for _, u := range us {
		u.SubmittedAt = u.SubmittedAt.UTC()
		u.UpdatedAt = u.UpdatedAt.UTC()
		if _, err := tx.NamedExecContext(ctx, query, u); err != nil {
			return fmt.Errorf("caching progress update %d: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// GetProgressUpdates returns cached progress updates, newest first.
// An empty status returns all of them.
func (s *SQLiteStore) GetProgressUpdates(
	ctx context.Context,
	status string,
) ([]model.ProgressUpdate, error) {
	query := "SELECT * FROM progress_updates"
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY submitted_at DESC, id DESC"

	var us []model.ProgressUpdate
	if err := s.db.SelectContext(ctx, &us, query, args...); err != nil {
		return nil, fmt.Errorf("querying progress updates: %w", err)
	}
	return us, nil
}

// ReplaceSemesters swaps the cached semester list for ss.
func (s *SQLiteStore) ReplaceSemesters(
	ctx context.Context,
	ss []model.Semester,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM semesters"); err != nil {
		return fmt.Errorf("clearing semesters: %w", err)
	}

	for _, sem := range ss {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO semesters (
				id, academic_year, name, start_date, end_date, is_current
			) VALUES (?, ?, ?, ?, ?, ?)`,
			sem.ID, sem.AcademicYear, sem.Name,
			sem.StartDate.UTC(), sem.EndDate.UTC(), boolToInt(sem.IsCurrent),
		)
		if err != nil {
			return fmt.Errorf("caching semester %d: %w", sem.ID, err)
		}
	}

	return tx.Commit()
}

// GetSemesters returns cached semesters, most recent first.
func (s *SQLiteStore) GetSemesters(ctx context.Context) ([]model.Semester, error) {
	var ss []model.Semester
	err := s.db.SelectContext(ctx, &ss,
		"SELECT * FROM semesters ORDER BY start_date DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying semesters: %w", err)
	}
	return ss, nil
}

// Wipe deletes every cached row.
func (s *SQLiteStore) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"notifications", "progress_updates", "semesters"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wiping %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
