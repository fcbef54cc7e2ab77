package mysql

import (
	"context"
	"database/sql"
	"time"

	"notification-system/internal/domain"
)

type MySQLNotificationRepository struct {
	db *sql.DB
}

func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{db: db}
}

func (r *MySQLNotificationRepository) Insert(ctx context.Context, userID string, item *domain.NotificationItem) error {
	query := `
        INSERT INTO notifications (id, user_id, text, link, raw, is_read, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	var raw []byte
	if item.Raw != nil {
		raw = item.Raw
	}
	_, err := r.db.ExecContext(ctx, query,
		item.ID, userID, item.Text, item.Link, raw,
		item.Read, item.Timestamp, time.Now())
	return err
}

func (r *MySQLNotificationRepository) List(ctx context.Context, userID string, limit int) ([]domain.NotificationItem, error) {
	query := `
        SELECT id, text, link, raw, is_read, timestamp
        FROM notifications
        WHERE user_id = ?
        ORDER BY created_at DESC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.NotificationItem
	for rows.Next() {
		var item domain.NotificationItem
		var link sql.NullString
		var raw []byte

		err := rows.Scan(&item.ID, &item.Text, &link, &raw, &item.Read, &item.Timestamp)
		if err != nil {
			return nil, err
		}

		item.Link = link.String
		if len(raw) > 0 {
			item.Raw = raw
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *MySQLNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND id = ?`
	_, err := r.db.ExecContext(ctx, query, userID, id)
	return err
}

func (r *MySQLNotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *MySQLNotificationRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM notifications WHERE user_id = ? AND id = ?`
	_, err := r.db.ExecContext(ctx, query, userID, id)
	return err
}

func (r *MySQLNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
