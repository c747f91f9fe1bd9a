package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"scheduling-engine/core/cache"
	"scheduling-engine/core/constants"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/timemath"
	bookingEntity "scheduling-engine/modules/booking/entity"

	"github.com/google/uuid"
)

// CachedCalendar caches busy intervals per host and window. Every event the
// engine writes bumps the host's cache version, so later reads miss.
type CachedCalendar struct {
	next  Calendar
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedCalendar(next Calendar, c cache.Cache) *CachedCalendar {
	return &CachedCalendar{next: next, cache: c, ttl: constants.BusyCacheTTL}
}

func versionKey(hostID uuid.UUID) string {
	return constants.RedisKeyBusyIntervals + hostID.String() + ":version"
}

func (c *CachedCalendar) windowKey(ctx context.Context, hostID uuid.UUID, start, end time.Time) string {
	version, err := c.cache.Get(ctx, versionKey(hostID))
	if err != nil {
		version = "0"
	}
	return fmt.Sprintf("%s%s:%s:%d:%d", constants.RedisKeyBusyIntervals, hostID, version, start.Unix(), end.Unix())
}

func (c *CachedCalendar) GetBusyIntervals(ctx context.Context, hostID uuid.UUID, start, end time.Time) ([]timemath.Interval, error) {
	key := c.windowKey(ctx, hostID, start, end)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var busy []timemath.Interval
		if err := json.Unmarshal([]byte(raw), &busy); err == nil {
			return busy, nil
		}
	} else if !stderrors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("CachedCalendar:Get:Error", "key", key, "error", err)
	}

	busy, err := c.next.GetBusyIntervals(ctx, hostID, start, end)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(busy); err == nil {
		if err := c.cache.Set(ctx, key, string(raw), c.ttl); err != nil {
			logger.Warn("CachedCalendar:Set:Error", "key", key, "error", err)
		}
	}
	return busy, nil
}

func (c *CachedCalendar) CreateEvent(ctx context.Context, hostID uuid.UUID, b *bookingEntity.Booking) (string, error) {
	id, err := c.next.CreateEvent(ctx, hostID, b)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, hostID)
	return id, nil
}

func (c *CachedCalendar) DeleteEvent(ctx context.Context, hostID uuid.UUID, externalID string) error {
	if err := c.next.DeleteEvent(ctx, hostID, externalID); err != nil {
		return err
	}
	c.invalidate(ctx, hostID)
	return nil
}

func (c *CachedCalendar) invalidate(ctx context.Context, hostID uuid.UUID) {
	if _, err := c.cache.Incr(ctx, versionKey(hostID)); err != nil {
		logger.Warn("CachedCalendar:Invalidate:Error", "host_id", hostID, "error", err)
	}
}
