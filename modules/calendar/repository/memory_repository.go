package repository

import (
	"context"
	"sync"
	"time"

	"scheduling-engine/core/database"
	"scheduling-engine/modules/calendar/entity"

	"github.com/google/uuid"
)

type connKey struct {
	userID   uuid.UUID
	provider string
}

type memoryRepository struct {
	mu    sync.RWMutex
	conns map[connKey]entity.CalendarConnection
}

func NewMemoryRepository() CalendarRepository {
	return &memoryRepository{conns: make(map[connKey]entity.CalendarConnection)}
}

func (r *memoryRepository) UpsertConnection(_ context.Context, conn *entity.CalendarConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := connKey{conn.UserID, conn.Provider}
	now := time.Now().UTC()
	if existing, ok := r.conns[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
		if conn.RefreshToken == "" {
			conn.RefreshToken = existing.RefreshToken
		}
	} else {
		if conn.ID == uuid.Nil {
			conn.ID = uuid.New()
		}
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	conn.IsActive = true
	r.conns[key] = *conn
	return nil
}

func (r *memoryRepository) GetActiveConnection(_ context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connKey{userID, provider}]
	if !ok || !conn.IsActive {
		return nil, database.ErrNotFound
	}
	return &conn, nil
}

func (r *memoryRepository) ListConnections(_ context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.CalendarConnection
	for k, conn := range r.conns {
		if k.userID == userID && conn.IsActive {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (r *memoryRepository) UpdateTokens(_ context.Context, conn *entity.CalendarConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := connKey{conn.UserID, conn.Provider}
	existing, ok := r.conns[key]
	if !ok {
		return database.ErrNotFound
	}
	existing.AccessToken = conn.AccessToken
	existing.RefreshToken = conn.RefreshToken
	existing.TokenExpiresAt = conn.TokenExpiresAt
	existing.UpdatedAt = time.Now().UTC()
	r.conns[key] = existing
	return nil
}

func (r *memoryRepository) Deactivate(_ context.Context, userID uuid.UUID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := connKey{userID, provider}
	if conn, ok := r.conns[key]; ok {
		conn.IsActive = false
		r.conns[key] = conn
	}
	return nil
}
