package store

import (
	"context"

	"github.com/nhle/pgportal/internal/model"
)

// Store defines the local cache of portal data shown while the network
// is slow or unavailable. Every list is replaced wholesale on refresh.
type Store interface {
	ReplaceNotifications(ctx context.Context, ns []model.Notification) error
	GetNotifications(ctx context.Context) ([]model.Notification, error)

	ReplaceProgressUpdates(ctx context.Context, us []model.ProgressUpdate) error
	GetProgressUpdates(ctx context.Context, status string) ([]model.ProgressUpdate, error)

	ReplaceSemesters(ctx context.Context, ss []model.Semester) error
	GetSemesters(ctx context.Context) ([]model.Semester, error)

	// Wipe deletes every cached row. Called at logout.
	Wipe(ctx context.Context) error
}
