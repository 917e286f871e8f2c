package repositories

import (
	"context"
	"database/sql"
	"time"

	"hiveroadmap/internal/platform/models"
)

const (
	DefaultDeliveryLimit = 50
	MaxDeliveryLimit     = 500
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Record(ctx context.Context, d *models.Delivery) error {
	var errText sql.NullString
	if d.Error != "" {
		errText = sql.NullString{String: d.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (id, webhook_id, event_id, event_type, status_code, success, error, duration_ms, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.WebhookID, d.EventID, d.EventType, d.StatusCode, d.Success, errText, d.DurationMs, d.AttemptedAt.UnixMilli())
	return err
}

// ListByWebhook returns the most recent attempts for one webhook, newest first.
func (r *DeliveryRepository) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*models.Delivery, error) {
	if limit <= 0 {
		limit = DefaultDeliveryLimit
	}
	if limit > MaxDeliveryLimit {
		limit = MaxDeliveryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, webhook_id, event_id, event_type, status_code, success, error, duration_ms, attempted_at
		FROM webhook_deliveries
		WHERE webhook_id = ?
		ORDER BY attempted_at DESC, rowid DESC
		LIMIT ?
	`, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []*models.Delivery{}
	for rows.Next() {
		var d models.Delivery
		var errText sql.NullString
		var attemptedAt int64

		if err := rows.Scan(&d.ID, &d.WebhookID, &d.EventID, &d.EventType, &d.StatusCode, &d.Success, &errText, &d.DurationMs, &attemptedAt); err != nil {
			return nil, err
		}
		if errText.Valid {
			d.Error = errText.String
		}
		d.AttemptedAt = time.UnixMilli(attemptedAt).UTC()

		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

// PruneBefore deletes attempts older than cutoff and reports how many went.
func (r *DeliveryRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhook_deliveries WHERE attempted_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
