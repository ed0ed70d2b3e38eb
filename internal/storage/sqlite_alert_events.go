package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertd/internal/metrics"
	"github.com/good-yellow-bee/alertd/internal/models"
)

const defaultEventLimit = 100

type sqliteAlertEventRepo struct {
	db *sql.DB
}

func (r *sqliteAlertEventRepo) Create(ctx context.Context, e *models.AlertEvent) error {
	defer observe("create_alert_event")()

	var tags sql.NullString
	if len(e.Tags) > 0 {
		data, err := json.Marshal(e.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		tags = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO alert_events (id, alert_id, rule_id, rule_name, severity, action,
			message, value, threshold, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.AlertID, e.RuleID, e.RuleName, e.Severity, string(e.Action),
		e.Message, e.Value, e.Threshold, tags, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("create_alert_event", "sqlite").Inc()
		return fmt.Errorf("create alert event: %w", err)
	}
	return nil
}

func (r *sqliteAlertEventRepo) List(ctx context.Context, f models.AlertEventFilter) ([]*models.AlertEvent, int64, error) {
	defer observe("list_alert_events")()

	var where []string
	var args []any
	if f.RuleID != "" {
		where = append(where, "rule_id = ?")
		args = append(args, f.RuleID)
	}
	if f.AlertID != "" {
		where = append(where, "alert_id = ?")
		args = append(args, f.AlertID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_events"+clause, args...).Scan(&total); err != nil {
		metrics.StorageErrors.WithLabelValues("list_alert_events", "sqlite").Inc()
		return nil, 0, fmt.Errorf("count alert events: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	offset := max(f.Offset, 0)

	query := `
		SELECT id, alert_id, rule_id, rule_name, severity, action, message,
			value, threshold, tags, created_at
		FROM alert_events` + clause + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_alert_events", "sqlite").Inc()
		return nil, 0, fmt.Errorf("query alert events: %w", err)
	}
	defer rows.Close()

	events, err := scanAlertEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, rows.Err()
}

func (r *sqliteAlertEventRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	defer observe("delete_alert_events")()

	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_events WHERE created_at < ?", before.UnixMilli())
	if err != nil {
		metrics.StorageErrors.WithLabelValues("delete_alert_events", "sqlite").Inc()
		return 0, fmt.Errorf("delete alert events: %w", err)
	}
	return result.RowsAffected()
}

func scanAlertEvents(rows *sql.Rows) ([]*models.AlertEvent, error) {
	var events []*models.AlertEvent
	for rows.Next() {
		e := &models.AlertEvent{}
		var action string
		var tags sql.NullString
		var createdAt int64
		err := rows.Scan(&e.ID, &e.AlertID, &e.RuleID, &e.RuleName, &e.Severity, &action,
			&e.Message, &e.Value, &e.Threshold, &tags, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		e.Action = models.AlertAction(action)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}

// observe records the duration of a storage operation.
func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.StorageQueryDuration.WithLabelValues(operation, "sqlite").Observe(time.Since(start).Seconds())
	}
}
