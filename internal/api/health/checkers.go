package health

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// RunningChecker reports whether a background component is running.
type RunningChecker struct {
	name      string
	isRunning func() bool
}

// NewRunningChecker creates a checker named name backed by isRunning.
func NewRunningChecker(name string, isRunning func() bool) *RunningChecker {
	return &RunningChecker{name: name, isRunning: isRunning}
}

// Name returns the checker name.
func (c *RunningChecker) Name() string {
	return c.name
}

// Check fails when the component is not running.
func (c *RunningChecker) Check(ctx context.Context) error {
	if c.isRunning == nil || !c.isRunning() {
		return fmt.Errorf("%s not running", c.name)
	}
	return nil
}
