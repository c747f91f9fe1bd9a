package repository

import (
	"context"
	stderrors "errors"

	"scheduling-engine/core/database"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/params"
	"scheduling-engine/modules/notification/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByUserID(ctx context.Context, userID uuid.UUID, p params.QueryParams) (*entity.PaginatedNotificationEntity, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	GetPreferences(ctx context.Context, recipient string) (*entity.Preferences, error)
	UpsertPreferences(ctx context.Context, p *entity.Preferences) error
}

type notificationRepository struct {
	db database.IDatabase
}

func NewNotificationRepository(db database.IDatabase) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, recipient, template, title, message, data, is_read, created_at, updated_at)
		VALUES (:id, :user_id, :recipient, :template, :title, :message, :data, :is_read, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		logger.Error("NotificationRepository:Create:Error", "error", err)
		return database.MapError(err)
	}
	return nil
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, p params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	baseQuery := `FROM notifications WHERE user_id = $1`

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, userID); err != nil {
		logger.Error("NotificationRepository:GetByUserID:Count:Error", "error", err)
		return nil, err
	}

	query := `SELECT * ` + baseQuery + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var items []entity.Notification
	if err := r.db.SelectContext(ctx, &items, query, userID, p.PageSize, p.Offset()); err != nil {
		logger.Error("NotificationRepository:GetByUserID:Select:Error", "error", err)
		return nil, err
	}
	return entity.NewPagination(items, total, p.PageNumber, p.PageSize), nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE notifications SET is_read = true, updated_at = NOW() WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return err
	}
	query = r.db.SQLx().Rebind(query)
	if err := r.db.ExecContext(ctx, query, args...); err != nil {
		logger.Error("NotificationRepository:MarkAsRead:Error", "error", err)
		return err
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true, updated_at = NOW() WHERE user_id = $1 AND is_read = false`
	if err := r.db.ExecContext(ctx, query, userID); err != nil {
		logger.Error("NotificationRepository:MarkAllAsRead:Error", "error", err)
		return err
	}
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		logger.Error("NotificationRepository:CountUnread:Error", "error", err)
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) GetPreferences(ctx context.Context, recipient string) (*entity.Preferences, error) {
	var p entity.Preferences
	query := `SELECT recipient, new_booking, cancellation, reschedule, daily_digest FROM notification_preferences WHERE recipient = $1`
	if err := r.db.GetContext(ctx, &p, query, recipient); err != nil {
		err = database.MapError(err)
		if !stderrors.Is(err, database.ErrNotFound) {
			logger.Error("NotificationRepository:GetPreferences:Error", "error", err)
		}
		return nil, err
	}
	return &p, nil
}

func (r *notificationRepository) UpsertPreferences(ctx context.Context, p *entity.Preferences) error {
	query := `
		INSERT INTO notification_preferences (recipient, new_booking, cancellation, reschedule, daily_digest, updated_at)
		VALUES (:recipient, :new_booking, :cancellation, :reschedule, :daily_digest, NOW())
		ON CONFLICT (recipient) DO UPDATE SET
			new_booking = EXCLUDED.new_booking,
			cancellation = EXCLUDED.cancellation,
			reschedule = EXCLUDED.reschedule,
			daily_digest = EXCLUDED.daily_digest,
			updated_at = NOW()
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		logger.Error("NotificationRepository:UpsertPreferences:Error", "error", err)
		return database.MapError(err)
	}
	return nil
}
