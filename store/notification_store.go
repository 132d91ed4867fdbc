package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lightfolio/api/models"
)

// NotificationStore persists visit notifications and their per-admin receipts.
// The dedup read-then-write here is deliberately unguarded: concurrent opens
// of the same visit can in rare cases both notify (accepted best-effort
// at-most-one-per-window, see the schema's visit index).
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// LatestForVisit returns the most recent notification for the
// (sessionID, shareLinkID) pair, or nil when the visit was never notified.
func (s *NotificationStore) LatestForVisit(ctx context.Context, sessionID, shareLinkID string) (*models.Notification, error) {
	n := &models.Notification{}
	query := `
		SELECT id, lightbox_id, share_link_id, session_id, password_correct, entered_at
		FROM notifications
		WHERE session_id = $1 AND share_link_id = $2
		ORDER BY entered_at DESC
		LIMIT 1;
	`
	err := s.db.QueryRowContext(ctx, query, sessionID, shareLinkID).Scan(
		&n.ID,
		&n.LightboxID,
		&n.ShareLinkID,
		&n.SessionID,
		&n.PasswordCorrect,
		&n.EnteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up latest visit notification: %w", err)
	}
	return n, nil
}

// Create inserts a notification row. Rows are immutable afterwards.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, lightbox_id, share_link_id, session_id, password_correct, entered_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	if _, err := s.db.ExecContext(ctx, query,
		n.ID, n.LightboxID, n.ShareLinkID, n.SessionID, n.PasswordCorrect, n.EnteredAt,
	); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CreateReceipt inserts one unseen receipt for one admin user. Each receipt
// insert is independent so partial fan-out failure never rolls back.
func (s *NotificationStore) CreateReceipt(ctx context.Context, notificationID string, adminUserID int) error {
	query := `
		INSERT INTO notification_receipts (notification_id, admin_user_id, seen)
		VALUES ($1, $2, false);
	`
	if _, err := s.db.ExecContext(ctx, query, notificationID, adminUserID); err != nil {
		return fmt.Errorf("failed to insert notification receipt: %w", err)
	}
	return nil
}

// ListForAdmin returns the admin's receipts joined with their notifications
// and entity names, newest first. unseenOnly and lightboxID are optional
// filters (zero values disable them).
func (s *NotificationStore) ListForAdmin(ctx context.Context, adminUserID int, unseenOnly bool, lightboxID string) ([]models.AdminNotification, error) {
	query := `
		SELECT n.id, n.lightbox_id, n.share_link_id, n.session_id, n.password_correct, n.entered_at,
		       lb.name, sl.name, r.seen, r.seen_at
		FROM notification_receipts r
		JOIN notifications n ON n.id = r.notification_id
		JOIN lightboxes lb ON lb.id = n.lightbox_id
		JOIN share_links sl ON sl.id = n.share_link_id
		WHERE r.admin_user_id = $1
	`
	args := []any{adminUserID}
	if unseenOnly {
		query += ` AND r.seen = false`
	}
	if lightboxID != "" {
		args = append(args, lightboxID)
		query += fmt.Sprintf(` AND n.lightbox_id = $%d`, len(args))
	}
	query += ` ORDER BY n.entered_at DESC;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var results []models.AdminNotification
	for rows.Next() {
		var a models.AdminNotification
		if err := rows.Scan(
			&a.ID, &a.LightboxID, &a.ShareLinkID, &a.SessionID, &a.PasswordCorrect, &a.EnteredAt,
			&a.LightboxName, &a.ShareLinkName, &a.Seen, &a.SeenAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error listing notifications: %w", err)
	}
	return results, nil
}

// SetSeen marks the admin's receipt seen or unseen. Returns ErrNotFound when
// the admin has no receipt for the notification.
func (s *NotificationStore) SetSeen(ctx context.Context, notificationID string, adminUserID int, seen bool) error {
	query := `
		UPDATE notification_receipts
		SET seen = $3, seen_at = CASE WHEN $3 THEN now() ELSE NULL END
		WHERE notification_id = $1 AND admin_user_id = $2;
	`
	res, err := s.db.ExecContext(ctx, query, notificationID, adminUserID, seen)
	if err != nil {
		return fmt.Errorf("failed to update notification receipt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read receipt update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
