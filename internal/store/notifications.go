package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docrev/internal/models"
)

const notificationColumns = "id, user_id, message, payload_json, is_read, created_at"
const auditColumns = "id, actor_id, action, payload_json, created_at"

// InsertNotification queues one notification row. Callers inside a
// batch use the Tx variant so queued messages roll back with the batch.
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, s.db, n)
}

// InsertNotification queues one notification inside the transaction.
func (t *Tx) InsertNotification(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, t.tx, n)
}

// ListNotifications lists notifications for one user, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		if n != nil {
			notifications = append(notifications, *n)
		}
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags one notification as read. It reports
// whether a row was updated.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertAuditEntry records one action in the audit log.
func (s *Store) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload, err := payloadToJSON(entry.Payload)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, nullIfEmpty(entry.ActorID), entry.Action, payload, formatTime(entry.CreatedAt))
	return err
}

// ListAuditEntries lists audit entries, newest first.
func (s *Store) ListAuditEntries(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNotification(ctx context.Context, db execer, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.UserID == "" {
		return fmt.Errorf("notification user_id is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	payload, err := payloadToJSON(n.Payload)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, payload_json, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, n.ID, n.UserID, n.Message, payload, formatTime(n.CreatedAt))
	return err
}

func payloadToJSON(payload map[string]any) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

func scanNotification(scanner interface {
	Scan(dest ...any) error
}) (*models.Notification, error) {
	n := models.Notification{}
	var payload sql.NullString
	var isRead int
	var createdAt string

	err := scanner.Scan(&n.ID, &n.UserID, &n.Message, &payload, &isRead, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	n.IsRead = isRead != 0
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &n.Payload); err != nil {
			return nil, fmt.Errorf("parse notification payload: %w", err)
		}
	}
	return &n, nil
}

func scanAuditEntry(scanner interface {
	Scan(dest ...any) error
}) (*models.AuditEntry, error) {
	entry := models.AuditEntry{}
	var actorID, payload sql.NullString
	var createdAt string

	err := scanner.Scan(&entry.ID, &actorID, &entry.Action, &payload, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	entry.ActorID = actorID.String
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &entry.Payload); err != nil {
			return nil, fmt.Errorf("parse audit payload: %w", err)
		}
	}
	return &entry, nil
}
