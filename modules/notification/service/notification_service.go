package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"scheduling-engine/core/database"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/params"
	"scheduling-engine/modules/notification/dto"
	"scheduling-engine/modules/notification/entity"
	"scheduling-engine/modules/notification/repository"

	"github.com/google/uuid"
)

// Template names shared with the booking flow.
const (
	templateBookingCreated     = "booking_created"
	templateBookingRescheduled = "booking_rescheduled"
	templateBookingCancelled   = "booking_cancelled"
	templateDailyDigest        = "daily_digest"
)

var templateCategories = map[string]string{
	templateBookingCreated:     entity.CategoryNewBooking,
	templateBookingRescheduled: entity.CategoryReschedule,
	templateBookingCancelled:   entity.CategoryCancellation,
	templateDailyDigest:        entity.CategoryDailyDigest,
}

type NotificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: time.Now}
}

// Send records a notification for recipient unless their preferences turn
// the template's category off. Hosts are matched through the host_id and
// host_email fields of data so they can read it in the app.
func (s *NotificationService) Send(ctx context.Context, template, recipient string, data map[string]any) error {
	recipient = strings.ToLower(strings.TrimSpace(recipient))
	if recipient == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "recipient is required", nil)
	}
	prefs, err := s.preferences(ctx, recipient)
	if err != nil {
		return err
	}
	if category, ok := templateCategories[template]; ok && !prefs.Allows(category) {
		logger.Info("NotificationService:Send:OptedOut", "template", template, "category", category)
		return nil
	}

	now := s.now().UTC()
	title, message := render(template, data)
	n := &entity.Notification{
		UserID:    hostUserID(recipient, data),
		Recipient: recipient,
		Template:  template,
		Title:     title,
		Message:   message,
		Data:      entity.JSONB(data),
	}
	n.ID = uuid.New()
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := s.repo.Create(ctx, n); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to record notification", err)
	}
	logger.Info("NotificationService:Send:Success", "template", template, "notification_id", n.ID)
	return nil
}

func (s *NotificationService) preferences(ctx context.Context, recipient string) (*entity.Preferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, recipient)
	if err != nil {
		if stderrors.Is(err, database.ErrNotFound) {
			return entity.DefaultPreferences(recipient), nil
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load notification preferences", err)
	}
	return prefs, nil
}

func hostUserID(recipient string, data map[string]any) *uuid.UUID {
	email, _ := data["host_email"].(string)
	if !strings.EqualFold(email, recipient) {
		return nil
	}
	id, err := uuid.Parse(fmt.Sprint(data["host_id"]))
	if err != nil {
		return nil
	}
	return &id
}

func render(template string, data map[string]any) (string, string) {
	guest := fmt.Sprint(data["guest_name"])
	event := fmt.Sprint(data["event_title"])
	switch template {
	case templateBookingCreated:
		return "New booking: " + event, guest + " booked " + event + "."
	case templateBookingRescheduled:
		return "Booking rescheduled: " + event, guest + " moved " + event + " to a new time."
	case templateBookingCancelled:
		return "Booking cancelled: " + event, guest + "'s " + event + " was cancelled."
	case templateDailyDigest:
		return "Your bookings for " + fmt.Sprint(data["date"]), "Here is your schedule for tomorrow."
	}
	return template, ""
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, userID uuid.UUID, p params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	return s.repo.GetByUserID(ctx, userID, p)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (*dto.UnreadCountResponse, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

func (s *NotificationService) GetPreferences(ctx context.Context, email string) (*entity.Preferences, error) {
	return s.preferences(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, email string, req *dto.UpdatePreferencesRequest) (*entity.Preferences, error) {
	prefs, err := s.GetPreferences(ctx, email)
	if err != nil {
		return nil, err
	}
	if prefs.Recipient == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "account has no email", nil)
	}
	if req.NewBooking != nil {
		prefs.NewBooking = *req.NewBooking
	}
	if req.Cancellation != nil {
		prefs.Cancellation = *req.Cancellation
	}
	if req.Reschedule != nil {
		prefs.Reschedule = *req.Reschedule
	}
	if req.DailyDigest != nil {
		prefs.DailyDigest = *req.DailyDigest
	}
	if err := s.repo.UpsertPreferences(ctx, prefs); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save notification preferences", err)
	}
	return prefs, nil
}
