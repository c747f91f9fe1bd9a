package repository

import (
	"context"
	"sort"
	"sync"

	"scheduling-engine/core/database"
	"scheduling-engine/modules/availability/entity"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu         sync.RWMutex
	rules      map[uuid.UUID]entity.AvailabilityRules
	eventTypes map[uuid.UUID]entity.EventType
	slugs      map[string]uuid.UUID
}

func NewMemoryRepository() AvailabilityRepository {
	return &memoryRepository{
		rules:      make(map[uuid.UUID]entity.AvailabilityRules),
		eventTypes: make(map[uuid.UUID]entity.EventType),
		slugs:      make(map[string]uuid.UUID),
	}
}

func (r *memoryRepository) GetRules(_ context.Context, hostID uuid.UUID) (*entity.AvailabilityRules, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules, ok := r.rules[hostID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &rules, nil
}

func (r *memoryRepository) UpsertRules(_ context.Context, rules *entity.AvailabilityRules) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rules[rules.HostID]; ok {
		rules.CreatedAt = existing.CreatedAt
	}
	r.rules[rules.HostID] = *rules
	return nil
}

func (r *memoryRepository) ListRules(_ context.Context) ([]entity.AvailabilityRules, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.AvailabilityRules, 0, len(r.rules))
	for _, rules := range r.rules {
		out = append(out, rules)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HostID.String() < out[j].HostID.String() })
	return out, nil
}

func (r *memoryRepository) CreateEventType(_ context.Context, et *entity.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.slugs[et.Slug]; taken {
		return database.ErrDuplicate
	}
	r.eventTypes[et.ID] = *et
	r.slugs[et.Slug] = et.ID
	return nil
}

func (r *memoryRepository) UpdateEventType(_ context.Context, et *entity.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.eventTypes[et.ID]
	if !ok {
		return database.ErrNotFound
	}
	existing.Title = et.Title
	existing.DurationMinutes = et.DurationMinutes
	existing.BufferBeforeMinutes = et.BufferBeforeMinutes
	existing.BufferAfterMinutes = et.BufferAfterMinutes
	existing.IsActive = et.IsActive
	existing.UpdatedAt = et.UpdatedAt
	r.eventTypes[et.ID] = existing
	return nil
}

func (r *memoryRepository) GetEventTypeByID(_ context.Context, id uuid.UUID) (*entity.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	et, ok := r.eventTypes[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &et, nil
}

func (r *memoryRepository) GetEventTypeBySlug(_ context.Context, slug string) (*entity.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.slugs[slug]
	if !ok {
		return nil, database.ErrNotFound
	}
	et := r.eventTypes[id]
	return &et, nil
}

func (r *memoryRepository) ListEventTypes(_ context.Context, hostID uuid.UUID) ([]entity.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.EventType
	for _, et := range r.eventTypes {
		if et.HostID == hostID {
			out = append(out, et)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
