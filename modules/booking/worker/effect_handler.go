package worker

import (
	"context"
	"fmt"

	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/booking/service"
)

// EffectHandler applies one post-commit effect. It is safe to run the same
// effect more than once.
type EffectHandler struct {
	ledger    *service.Ledger
	calendar  service.BusyCalendar
	notifier  service.NotificationDispatcher
	artifacts service.ArtifactStore
}

func NewEffectHandler(ledger *service.Ledger, calendar service.BusyCalendar, notifier service.NotificationDispatcher, artifacts service.ArtifactStore) *EffectHandler {
	return &EffectHandler{ledger: ledger, calendar: calendar, notifier: notifier, artifacts: artifacts}
}

func (h *EffectHandler) Handle(ctx context.Context, e entity.Effect) error {
	switch e.Kind {
	case entity.EffectCalendarCreate:
		return h.createEvent(ctx, e)
	case entity.EffectCalendarDelete:
		if h.calendar == nil || e.ExternalEventID == "" {
			return nil
		}
		return h.calendar.DeleteEvent(ctx, e.HostID, e.ExternalEventID)
	case entity.EffectNotify:
		if h.notifier == nil || e.Recipient == "" {
			return nil
		}
		return h.notifier.Send(ctx, e.Template, e.Recipient, e.Data)
	case entity.EffectBriefInvalidate:
		if h.artifacts == nil {
			return nil
		}
		return h.artifacts.Invalidate(ctx, e.BookingID)
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}

// createEvent writes the booking to the host's calendar unless the booking
// has changed since the effect was produced.
func (h *EffectHandler) createEvent(ctx context.Context, e entity.Effect) error {
	if h.calendar == nil {
		return nil
	}
	b, err := h.ledger.Get(ctx, e.BookingID)
	if err != nil {
		if errors.HasCode(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	if b.Status != entity.StatusConfirmed || b.Version != e.Version || b.CalendarEventID != nil {
		return nil
	}

	externalID, err := h.calendar.CreateEvent(ctx, b.HostID, b)
	if err != nil {
		return err
	}
	if externalID == "" {
		return nil
	}
	linked, err := h.ledger.SetCalendarEventID(ctx, b.ID, e.Version, externalID)
	if err != nil {
		logger.Error("EffectHandler:CreateEvent:LinkFailed", "booking_id", b.ID, "event_id", externalID, "error", err)
		return err
	}
	if !linked {
		logger.Info("EffectHandler:CreateEvent:Superseded", "booking_id", b.ID, "event_id", externalID)
		return h.calendar.DeleteEvent(ctx, b.HostID, externalID)
	}
	return nil
}
