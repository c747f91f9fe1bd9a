package repository

import (
	"context"
	"sort"
	"sync"

	"scheduling-engine/core/database"
	"scheduling-engine/core/timemath"
	"scheduling-engine/modules/booking/entity"

	"github.com/google/uuid"
)

// memoryRepository keeps bookings in process memory. Writes made inside
// WithHostLock are staged and applied only when fn succeeds.
type memoryRepository struct {
	mu         sync.RWMutex
	bookings   map[uuid.UUID]entity.Booking
	cancelIdx  map[string]uuid.UUID
	reschedIdx map[string]uuid.UUID

	locksMu   sync.Mutex
	hostLocks map[uuid.UUID]*sync.Mutex
}

func NewMemoryRepository() BookingRepository {
	return &memoryRepository{
		bookings:   make(map[uuid.UUID]entity.Booking),
		cancelIdx:  make(map[string]uuid.UUID),
		reschedIdx: make(map[string]uuid.UUID),
		hostLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *memoryRepository) hostLock(hostID uuid.UUID) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.hostLocks[hostID]
	if !ok {
		l = &sync.Mutex{}
		r.hostLocks[hostID] = l
	}
	return l
}

func (r *memoryRepository) WithHostLock(ctx context.Context, hostID uuid.UUID, fn func(tx Tx) error) error {
	l := r.hostLock(hostID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{repo: r, staged: make(map[uuid.UUID]entity.Booking)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.apply(tx)
}

func (r *memoryRepository) apply(tx *memoryTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range tx.staged {
		r.bookings[id] = b
		r.cancelIdx[b.CancelTokenHash] = id
		r.reschedIdx[b.RescheduleTokenHash] = id
	}
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &b, nil
}

func (r *memoryRepository) GetByCancelTokenHash(ctx context.Context, hash string) (*entity.Booking, error) {
	r.mu.RLock()
	id, ok := r.cancelIdx[hash]
	r.mu.RUnlock()
	if !ok {
		return nil, database.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryRepository) GetByRescheduleTokenHash(ctx context.Context, hash string) (*entity.Booking, error) {
	r.mu.RLock()
	id, ok := r.reschedIdx[hash]
	r.mu.RUnlock()
	if !ok {
		return nil, database.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryRepository) ListConfirmedOverlapping(_ context.Context, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return overlapping(r.bookings, nil, hostID, window, excludeID), nil
}

func (r *memoryRepository) ListByHost(_ context.Context, hostID uuid.UUID, window timemath.Interval) ([]entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Booking
	for _, b := range r.bookings {
		if b.HostID == hostID && !b.StartTime.Before(window.Start) && b.StartTime.Before(window.End) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memoryRepository) SetCalendarEventID(_ context.Context, id uuid.UUID, version int, eventID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Version != version || b.Status != entity.StatusConfirmed {
		return database.ErrNotFound
	}
	b.CalendarEventID = eventID
	r.bookings[id] = b
	return nil
}

type memoryTx struct {
	repo   *memoryRepository
	staged map[uuid.UUID]entity.Booking
}

func (t *memoryTx) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return &b, nil
	}
	return t.repo.GetByID(ctx, id)
}

func (t *memoryTx) ListConfirmedOverlapping(_ context.Context, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) ([]entity.Booking, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return overlapping(t.repo.bookings, t.staged, hostID, window, excludeID), nil
}

func (t *memoryTx) Insert(ctx context.Context, b *entity.Booking) error {
	t.repo.mu.RLock()
	_, exists := t.repo.bookings[b.ID]
	_, cancelTaken := t.repo.cancelIdx[b.CancelTokenHash]
	_, reschedTaken := t.repo.reschedIdx[b.RescheduleTokenHash]
	t.repo.mu.RUnlock()
	if _, staged := t.staged[b.ID]; exists || staged || cancelTaken || reschedTaken {
		return database.ErrDuplicate
	}
	if err := t.checkExclusion(ctx, b); err != nil {
		return err
	}
	t.staged[b.ID] = *b
	return nil
}

func (t *memoryTx) Update(ctx context.Context, b *entity.Booking) error {
	if _, err := t.GetByID(ctx, b.ID); err != nil {
		return err
	}
	if err := t.checkExclusion(ctx, b); err != nil {
		return err
	}
	t.staged[b.ID] = *b
	return nil
}

// checkExclusion mirrors the bookings_no_overlap constraint.
func (t *memoryTx) checkExclusion(ctx context.Context, b *entity.Booking) error {
	if b.Status != entity.StatusConfirmed {
		return nil
	}
	clash, err := t.ListConfirmedOverlapping(ctx, b.HostID, b.Blocked(), b.ID)
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return database.ErrExclusionViolation
	}
	return nil
}

func overlapping(committed, staged map[uuid.UUID]entity.Booking, hostID uuid.UUID, window timemath.Interval, excludeID uuid.UUID) []entity.Booking {
	var out []entity.Booking
	consider := func(b entity.Booking) {
		if b.HostID != hostID || b.ID == excludeID || b.Status != entity.StatusConfirmed {
			return
		}
		if timemath.IntervalsOverlap(b.Blocked(), window) {
			out = append(out, b)
		}
	}
	for id, b := range committed {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		consider(b)
	}
	for _, b := range staged {
		consider(b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockedStart.Before(out[j].BlockedStart) })
	return out
}
