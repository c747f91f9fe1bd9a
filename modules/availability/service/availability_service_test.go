package service

import (
	"context"
	"strings"
	"testing"

	"scheduling-engine/core/errors"
	"scheduling-engine/modules/availability/dto"
	"scheduling-engine/modules/availability/repository"

	"github.com/google/uuid"
)

func saveRulesRequest() *dto.SaveRulesRequest {
	r := weekdayRules()
	return &dto.SaveRulesRequest{
		HostName:         "  Grace ",
		Timezone:         r.Timezone,
		WeeklyHours:      r.WeeklyHours,
		MinNoticeMinutes: r.MinNoticeMinutes,
		MaxAdvanceDays:   r.MaxAdvanceDays,
	}
}

func TestAvailabilityService_SaveRules(t *testing.T) {
	ctx := context.Background()
	svc := NewAvailabilityService(repository.NewMemoryRepository())
	hostID := uuid.New()

	if _, err := svc.GetRules(ctx, hostID); !errors.HasCode(err, errors.ErrNotFound) {
		t.Fatalf("GetRules before save = %v, want NOT_FOUND", err)
	}

	tests := []struct {
		name   string
		mutate func(*dto.SaveRulesRequest)
	}{
		{"unknown timezone", func(r *dto.SaveRulesRequest) { r.Timezone = "Mars/Olympus" }},
		{"negative notice", func(r *dto.SaveRulesRequest) { r.MinNoticeMinutes = -1 }},
		{"zero advance", func(r *dto.SaveRulesRequest) { r.MaxAdvanceDays = 0 }},
		{"oversized buffer", func(r *dto.SaveRulesRequest) { r.DefaultBufferAfterMinutes = 10000 }},
		{"overlapping blocks", func(r *dto.SaveRulesRequest) {
			r.WeeklyHours[1] = append(r.WeeklyHours[1], block("16:00", "18:00"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := saveRulesRequest()
			tt.mutate(req)
			if _, err := svc.SaveRules(ctx, hostID, "host@example.com", req); !errors.HasCode(err, errors.ErrInvalidInput) {
				t.Fatalf("SaveRules error = %v, want INVALID_INPUT", err)
			}
		})
	}

	saved, err := svc.SaveRules(ctx, hostID, "host@example.com", saveRulesRequest())
	if err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	if saved.HostName != "Grace" {
		t.Errorf("host name = %q", saved.HostName)
	}
	got, err := svc.GetRules(ctx, hostID)
	if err != nil {
		t.Fatalf("GetRules: %v", err)
	}
	if got.Timezone != "America/New_York" || len(got.WeeklyHours[2]) != 1 {
		t.Errorf("rules = %+v", got)
	}
}

func TestAvailabilityService_EventTypeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewAvailabilityService(repository.NewMemoryRepository())
	hostID := uuid.New()

	if _, err := svc.CreateEventType(ctx, hostID, &dto.CreateEventTypeRequest{Title: "Intro", DurationMinutes: 0}); !errors.HasCode(err, errors.ErrInvalidInput) {
		t.Fatalf("zero duration error = %v", err)
	}

	et, err := svc.CreateEventType(ctx, hostID, &dto.CreateEventTypeRequest{Title: "Intro Call!", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("CreateEventType: %v", err)
	}
	if !strings.HasPrefix(et.Slug, "intro-call-") || len(et.Slug) != len("intro-call-")+7 {
		t.Errorf("slug = %q", et.Slug)
	}

	if _, _, err := svc.GetBookable(ctx, et.Slug); !errors.HasCode(err, errors.ErrNotFound) {
		t.Fatalf("GetBookable without rules = %v, want NOT_FOUND", err)
	}
	if _, err := svc.SaveRules(ctx, hostID, "host@example.com", saveRulesRequest()); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	if _, _, err := svc.GetBookable(ctx, et.Slug); err != nil {
		t.Fatalf("GetBookable: %v", err)
	}

	if _, err := svc.GetEventType(ctx, uuid.New(), et.ID); !errors.HasCode(err, errors.ErrNotFound) {
		t.Fatalf("foreign host GetEventType = %v, want NOT_FOUND", err)
	}

	after := 15
	updated, err := svc.UpdateEventType(ctx, hostID, et.ID, &dto.UpdateEventTypeRequest{Title: "Intro", DurationMinutes: 45, BufferAfterMinutes: &after})
	if err != nil {
		t.Fatalf("UpdateEventType: %v", err)
	}
	if updated.DurationMinutes != 45 || *updated.BufferAfterMinutes != 15 || updated.Slug != et.Slug {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.DeactivateEventType(ctx, hostID, et.ID); err != nil {
		t.Fatalf("DeactivateEventType: %v", err)
	}
	if _, _, err := svc.GetBookable(ctx, et.Slug); !errors.HasCode(err, errors.ErrNotFound) {
		t.Fatalf("GetBookable after deactivate = %v, want NOT_FOUND", err)
	}
	if _, _, err := svc.GetRulesForEventType(ctx, et.ID); err != nil {
		t.Fatalf("existing bookings still resolve their event type: %v", err)
	}

	list, err := svc.ListEventTypes(ctx, uuid.New())
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("ListEventTypes for new host = %v, %v", list, err)
	}
}
