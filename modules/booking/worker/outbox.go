package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/queue"
	"scheduling-engine/modules/booking/entity"

	"github.com/hibiken/asynq"
)

const TaskTypeEffect = "booking:effect"

// QueueOutbox enqueues each effect as an asynq task whose id is the effect
// key, so a repeated publish of the same booking version is dropped.
type QueueOutbox struct {
	client *queue.Client
}

func NewQueueOutbox(client *queue.Client) *QueueOutbox {
	return &QueueOutbox{client: client}
}

func (o *QueueOutbox) Publish(ctx context.Context, effects ...entity.Effect) {
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.EffectTimeout)
	defer cancel()
	for _, e := range effects {
		if err := o.client.Enqueue(enqueueCtx, TaskTypeEffect, e, queue.Options(e.Key())...); err != nil {
			logger.Error("QueueOutbox:Publish:Error", "key", e.Key(), "error", err)
		}
	}
}

// RegisterHandlers mounts the effect handler on the worker server.
func RegisterHandlers(srv *queue.Server, handler *EffectHandler) {
	srv.HandleFunc(TaskTypeEffect, func(ctx context.Context, t *asynq.Task) error {
		var e entity.Effect
		if err := json.Unmarshal(t.Payload(), &e); err != nil {
			return fmt.Errorf("decode effect: %v: %w", err, asynq.SkipRetry)
		}
		return handler.Handle(ctx, e)
	})
}

// InlineOutbox runs effects in a background goroutine when no queue is
// configured. A key published again while its effect is still pending is
// dropped; keys are released once their effect has been attempted.
type InlineOutbox struct {
	handler *EffectHandler
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewInlineOutbox(handler *EffectHandler) *InlineOutbox {
	return &InlineOutbox{handler: handler, pending: make(map[string]struct{})}
}

func (o *InlineOutbox) Publish(ctx context.Context, effects ...entity.Effect) {
	batch := o.claim(effects)
	if len(batch) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for _, e := range batch {
			runCtx, cancel := context.WithTimeout(detached, constants.EffectTimeout)
			if err := o.handler.Handle(runCtx, e); err != nil {
				logger.Error("InlineOutbox:Handle:Error", "key", e.Key(), "error", err)
			}
			cancel()
			o.release(e.Key())
		}
	}()
}

func (o *InlineOutbox) claim(effects []entity.Effect) []entity.Effect {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]entity.Effect, 0, len(effects))
	for _, e := range effects {
		key := e.Key()
		if _, ok := o.pending[key]; ok {
			continue
		}
		o.pending[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func (o *InlineOutbox) release(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, key)
}

// Pending reports how many effect keys are still in flight.
func (o *InlineOutbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Wait blocks until every published effect has been attempted.
func (o *InlineOutbox) Wait() {
	o.wg.Wait()
}
