package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"scheduling-engine/core/database"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/utils"
	"scheduling-engine/modules/availability/dto"
	"scheduling-engine/modules/availability/entity"
	"scheduling-engine/modules/availability/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const maxSlugAttempts = 3

type AvailabilityService struct {
	repo repository.AvailabilityRepository
	now  func() time.Time
}

func NewAvailabilityService(repo repository.AvailabilityRepository) *AvailabilityService {
	return &AvailabilityService{repo: repo, now: time.Now}
}

func (s *AvailabilityService) GetRules(ctx context.Context, hostID uuid.UUID) (*entity.AvailabilityRules, error) {
	rules, err := s.repo.GetRules(ctx, hostID)
	if err != nil {
		if stderrors.Is(err, database.ErrNotFound) {
			return nil, errors.NewAppError(errors.ErrNotFound, "availability rules not found", nil)
		}
		logger.Error("AvailabilityService:GetRules:Error", "host_id", hostID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load availability", err)
	}
	return rules, nil
}

func (s *AvailabilityService) ListRules(ctx context.Context) ([]entity.AvailabilityRules, error) {
	return s.repo.ListRules(ctx)
}

func (s *AvailabilityService) SaveRules(ctx context.Context, hostID uuid.UUID, hostEmail string, req *dto.SaveRulesRequest) (*entity.AvailabilityRules, error) {
	now := s.now().UTC()
	rules := &entity.AvailabilityRules{
		HostID:                     hostID,
		HostEmail:                  hostEmail,
		HostName:                   strings.TrimSpace(req.HostName),
		Timezone:                   req.Timezone,
		WeeklyHours:                req.WeeklyHours,
		MinNoticeMinutes:           req.MinNoticeMinutes,
		MaxAdvanceDays:             req.MaxAdvanceDays,
		DefaultBufferBeforeMinutes: req.DefaultBufferBeforeMinutes,
		DefaultBufferAfterMinutes:  req.DefaultBufferAfterMinutes,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if err := rules.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
	}
	if err := s.repo.UpsertRules(ctx, rules); err != nil {
		logger.Error("AvailabilityService:SaveRules:Error", "host_id", hostID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to save availability", err)
	}
	logger.Info("AvailabilityService:SaveRules:Success", "host_id", hostID, "timezone", rules.Timezone)
	return rules, nil
}

func (s *AvailabilityService) CreateEventType(ctx context.Context, hostID uuid.UUID, req *dto.CreateEventTypeRequest) (*entity.EventType, error) {
	now := s.now().UTC()
	et := &entity.EventType{
		HostID:              hostID,
		Title:               strings.TrimSpace(req.Title),
		DurationMinutes:     req.DurationMinutes,
		BufferBeforeMinutes: req.BufferBeforeMinutes,
		BufferAfterMinutes:  req.BufferAfterMinutes,
		IsActive:            true,
	}
	et.ID = uuid.New()
	et.CreatedAt = now
	et.UpdatedAt = now
	if err := et.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
	}

	base := slug.Make(et.Title)
	if base == "" {
		base = "event"
	}
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		et.Slug = base + "-" + utils.GenerateID()
		err := s.repo.CreateEventType(ctx, et)
		if err == nil {
			logger.Info("AvailabilityService:CreateEventType:Success", "host_id", hostID, "slug", et.Slug)
			return et, nil
		}
		if !stderrors.Is(err, database.ErrDuplicate) {
			logger.Error("AvailabilityService:CreateEventType:Error", "host_id", hostID, "error", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create event type", err)
		}
	}
	return nil, errors.NewAppError(errors.ErrAlreadyExists, "could not allocate a unique slug", nil)
}

func (s *AvailabilityService) UpdateEventType(ctx context.Context, hostID, id uuid.UUID, req *dto.UpdateEventTypeRequest) (*entity.EventType, error) {
	et, err := s.GetEventType(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	et.Title = strings.TrimSpace(req.Title)
	et.DurationMinutes = req.DurationMinutes
	et.BufferBeforeMinutes = req.BufferBeforeMinutes
	et.BufferAfterMinutes = req.BufferAfterMinutes
	if req.IsActive != nil {
		et.IsActive = *req.IsActive
	}
	et.UpdatedAt = s.now().UTC()
	if err := et.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, err.Error(), err)
	}
	if err := s.repo.UpdateEventType(ctx, et); err != nil {
		logger.Error("AvailabilityService:UpdateEventType:Error", "id", id, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to update event type", err)
	}
	return et, nil
}

// DeactivateEventType soft-disables an event type. Existing bookings keep
// referencing it.
func (s *AvailabilityService) DeactivateEventType(ctx context.Context, hostID, id uuid.UUID) (*entity.EventType, error) {
	et, err := s.GetEventType(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	if !et.IsActive {
		return et, nil
	}
	et.IsActive = false
	et.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateEventType(ctx, et); err != nil {
		logger.Error("AvailabilityService:DeactivateEventType:Error", "id", id, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to deactivate event type", err)
	}
	logger.Info("AvailabilityService:DeactivateEventType:Success", "id", id)
	return et, nil
}

func (s *AvailabilityService) ListEventTypes(ctx context.Context, hostID uuid.UUID) ([]entity.EventType, error) {
	ets, err := s.repo.ListEventTypes(ctx, hostID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list event types", err)
	}
	if ets == nil {
		ets = []entity.EventType{}
	}
	return ets, nil
}

// GetEventType returns the host's own event type; other hosts' ids read as
// not found.
func (s *AvailabilityService) GetEventType(ctx context.Context, hostID, id uuid.UUID) (*entity.EventType, error) {
	et, err := s.GetEventTypeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if et.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrNotFound, "event type not found", nil)
	}
	return et, nil
}

func (s *AvailabilityService) GetEventTypeByID(ctx context.Context, id uuid.UUID) (*entity.EventType, error) {
	et, err := s.repo.GetEventTypeByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, database.ErrNotFound) {
			return nil, errors.NewAppError(errors.ErrNotFound, "event type not found", nil)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load event type", err)
	}
	return et, nil
}

// GetBookable resolves a public slug to an active event type and its host's
// rules.
func (s *AvailabilityService) GetBookable(ctx context.Context, eventSlug string) (*entity.EventType, *entity.AvailabilityRules, error) {
	et, err := s.repo.GetEventTypeBySlug(ctx, eventSlug)
	if err != nil {
		if stderrors.Is(err, database.ErrNotFound) {
			return nil, nil, errors.NewAppError(errors.ErrNotFound, "event type not found", nil)
		}
		return nil, nil, errors.NewAppError(errors.ErrInternalServer, "failed to load event type", err)
	}
	if !et.IsActive {
		return nil, nil, errors.NewAppError(errors.ErrNotFound, "event type not found", nil)
	}
	rules, err := s.GetRules(ctx, et.HostID)
	if err != nil {
		if errors.HasCode(err, errors.ErrNotFound) {
			return nil, nil, errors.NewAppError(errors.ErrNotFound, "event type not found", nil)
		}
		return nil, nil, err
	}
	return et, rules, nil
}

// GetRulesForEventType is used when a booking already names its event type.
func (s *AvailabilityService) GetRulesForEventType(ctx context.Context, eventTypeID uuid.UUID) (*entity.EventType, *entity.AvailabilityRules, error) {
	et, err := s.GetEventTypeByID(ctx, eventTypeID)
	if err != nil {
		return nil, nil, err
	}
	rules, err := s.GetRules(ctx, et.HostID)
	if err != nil {
		return nil, nil, err
	}
	return et, rules, nil
}
