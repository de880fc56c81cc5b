package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
)

// DeliveryRepository handles database operations for the delivery history.
type DeliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) RecordSent(
	ctx context.Context,
	chatID int64,
	item domain.Item,
	deliveredAt time.Time,
) error {
	query := `
		INSERT INTO deliveries (chat_id, item_id, item_title, item_url, status, delivered_at, created_at)
		VALUES (?, ?, ?, ?, 'sent', ?, CURRENT_TIMESTAMP)
	`

	if _, err := r.db.ExecContext(ctx, query, chatID, item.ID, item.Title, item.URL, deliveredAt); err != nil {
		return fmt.Errorf("failed to record sent delivery: %w", err)
	}

	return nil
}

func (r *DeliveryRepository) RecordFailed(
	ctx context.Context,
	chatID int64,
	item domain.Item,
	reason string,
	deliveredAt time.Time,
) error {
	query := `
		INSERT INTO deliveries (chat_id, item_id, item_title, item_url, status, fail_reason, delivered_at, created_at)
		VALUES (?, ?, ?, ?, 'failed', ?, ?, CURRENT_TIMESTAMP)
	`

	if _, err := r.db.ExecContext(ctx, query, chatID, item.ID, item.Title, item.URL, reason, deliveredAt); err != nil {
		return fmt.Errorf("failed to record failed delivery: %w", err)
	}

	return nil
}

func (r *DeliveryRepository) GetAll(
	ctx context.Context,
	chatID *int64,
	page, pageSize int,
) ([]domain.Delivery, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var deliveries []domain.Delivery

	if chatID != nil {
		countQuery := "SELECT COUNT(*) FROM deliveries WHERE chat_id = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, *chatID); err != nil {
			return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
		}

		query := `
			SELECT id, chat_id, item_id, item_title, item_url, status, fail_reason, delivered_at, created_at
			FROM deliveries
			WHERE chat_id = ?
			ORDER BY delivered_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &deliveries, query, *chatID, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get deliveries: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM deliveries"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
		}

		query := `
			SELECT id, chat_id, item_id, item_title, item_url, status, fail_reason, delivered_at, created_at
			FROM deliveries
			ORDER BY delivered_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &deliveries, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get deliveries: %w", err)
		}
	}

	return deliveries, totalCount, nil
}

// GetStats returns per-status delivery counts.
func (r *DeliveryRepository) GetStats(ctx context.Context) (sent, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)   AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed
		FROM deliveries
	`

	var stats struct {
		Sent   int64 `db:"sent"`
		Failed int64 `db:"failed"`
	}

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, fmt.Errorf("failed to get delivery stats: %w", err)
	}

	return stats.Sent, stats.Failed, nil
}
