// Package storage provides the alert journal storage interfaces and the
// SQLite implementation.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/alertd/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// AlertEvents returns the journal repository.
	AlertEvents() AlertEventRepository
}

// AlertEventRepository defines operations for the alert journal.
type AlertEventRepository interface {
	Create(ctx context.Context, event *models.AlertEvent) error
	// List returns matching events newest first and the total match count.
	List(ctx context.Context, filter models.AlertEventFilter) ([]*models.AlertEvent, int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
