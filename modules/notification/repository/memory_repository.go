package repository

import (
	"context"
	"slices"
	"sync"

	"scheduling-engine/core/database"
	"scheduling-engine/core/params"
	"scheduling-engine/modules/notification/entity"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu            sync.RWMutex
	notifications []entity.Notification
	prefs         map[string]entity.Preferences
}

func NewMemoryRepository() NotificationRepository {
	return &memoryRepository{prefs: make(map[string]entity.Preferences)}
}

func (r *memoryRepository) Create(_ context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func ownedBy(n *entity.Notification, userID uuid.UUID) bool {
	return n.UserID != nil && *n.UserID == userID
}

func (r *memoryRepository) GetByUserID(_ context.Context, userID uuid.UUID, p params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owned []entity.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if ownedBy(&r.notifications[i], userID) {
			owned = append(owned, r.notifications[i])
		}
	}
	total := len(owned)
	start := min(p.Offset(), total)
	end := min(start+p.PageSize, total)
	return entity.NewPagination(owned[start:end], total, p.PageNumber, p.PageSize), nil
}

func (r *memoryRepository) MarkAsRead(_ context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		n := &r.notifications[i]
		if ownedBy(n, userID) && slices.Contains(ids, n.ID) {
			n.IsRead = true
		}
	}
	return nil
}

func (r *memoryRepository) MarkAllAsRead(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if ownedBy(&r.notifications[i], userID) {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *memoryRepository) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for i := range r.notifications {
		if ownedBy(&r.notifications[i], userID) && !r.notifications[i].IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) GetPreferences(_ context.Context, recipient string) (*entity.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[recipient]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepository) UpsertPreferences(_ context.Context, p *entity.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[p.Recipient] = *p
	return nil
}
