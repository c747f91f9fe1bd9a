package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/storage"
	bookingEntity "scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/brief/entity"

	"github.com/google/uuid"
)

// BriefService keeps one JSON brief per booking in the object store. A brief
// is rebuilt on read when missing or older than the booking's last
// invalidation.
type BriefService struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewBriefService(store storage.ObjectStore) *BriefService {
	return &BriefService{store: store, now: time.Now}
}

func objectKey(bookingID uuid.UUID) string {
	return constants.BriefObjectPrefix + bookingID.String() + ".json"
}

func (s *BriefService) Invalidate(ctx context.Context, bookingID uuid.UUID) error {
	if err := s.store.Delete(ctx, objectKey(bookingID)); err != nil {
		logger.Error("BriefService:Invalidate:Error", "booking_id", bookingID, "error", err)
		return err
	}
	logger.Info("BriefService:Invalidate:Success", "booking_id", bookingID)
	return nil
}

func (s *BriefService) Get(ctx context.Context, b *bookingEntity.Booking, eventTitle string) (*entity.Brief, error) {
	cached, err := s.load(ctx, b.ID)
	if err == nil && !cached.StaleAfter(b.BriefInvalidatedAt) && cached.StartTime.Equal(b.StartTime) {
		return cached, nil
	}
	if err != nil && !stderrors.Is(err, storage.ErrObjectNotFound) {
		logger.Warn("BriefService:Get:LoadFailed", "booking_id", b.ID, "error", err)
	}

	brief := &entity.Brief{
		BookingID:   b.ID,
		EventTitle:  eventTitle,
		GuestName:   b.GuestName,
		GuestEmail:  b.GuestEmail,
		GuestNotes:  b.GuestNotes,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Timezone:    b.Timezone,
		GeneratedAt: s.now().UTC(),
	}
	body, err := json.Marshal(brief)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to encode brief", err)
	}
	if err := s.store.Put(ctx, objectKey(b.ID), body, "application/json"); err != nil {
		// The brief is still returned; the next read rebuilds it.
		logger.Warn("BriefService:Get:StoreFailed", "booking_id", b.ID, "error", err)
	}
	return brief, nil
}

func (s *BriefService) load(ctx context.Context, bookingID uuid.UUID) (*entity.Brief, error) {
	body, err := s.store.Get(ctx, objectKey(bookingID))
	if err != nil {
		return nil, err
	}
	var brief entity.Brief
	if err := json.Unmarshal(body, &brief); err != nil {
		return nil, err
	}
	return &brief, nil
}
