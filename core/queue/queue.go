package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"scheduling-engine/core/constants"
	"scheduling-engine/core/logger"

	"github.com/hibiken/asynq"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) opt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg RedisConfig) *Client {
	return &Client{client: asynq.NewClient(cfg.opt())}
}

// Enqueue marshals payload as JSON. A task whose id is already queued is
// treated as enqueued.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		if stderrors.Is(err, asynq.ErrTaskIDConflict) || stderrors.Is(err, asynq.ErrDuplicateTask) {
			logger.Info("Queue:Enqueue:Duplicate", "type", taskType)
			return nil
		}
		return err
	}
	logger.Debug("Queue:Enqueue:Success", "type", taskType, "id", info.ID, "queue", info.Queue)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Options returns the default options for an idempotent side-effect task.
func Options(taskID string) []asynq.Option {
	return []asynq.Option{
		asynq.TaskID(taskID),
		asynq.MaxRetry(constants.TaskMaxRetry),
		asynq.Queue(constants.QueueCritical),
		asynq.Timeout(constants.EffectTimeout),
		asynq.Retention(24 * time.Hour),
	}
}

type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(cfg RedisConfig, concurrency int) *Server {
	srv := asynq.NewServer(cfg.opt(), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			constants.QueueCritical: 6,
			constants.QueueDefault:  3,
		},
		Logger: asynqLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("Queue:Task:Error", "type", task.Type(), "retry", retried, "max_retry", maxRetry, "error", err)
		}),
	})
	return &Server{srv: srv, mux: asynq.NewServeMux()}
}

func (s *Server) HandleFunc(taskType string, fn func(ctx context.Context, t *asynq.Task) error) {
	s.mux.HandleFunc(taskType, fn)
}

func (s *Server) Start() error {
	return s.srv.Start(s.mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(cfg RedisConfig) *Scheduler {
	return &Scheduler{scheduler: asynq.NewScheduler(cfg.opt(), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   asynqLogger{},
	})}
}

func (s *Scheduler) Register(cronSpec, taskType string, opts ...asynq.Option) error {
	id, err := s.scheduler.Register(cronSpec, asynq.NewTask(taskType, nil), opts...)
	if err != nil {
		return err
	}
	logger.Info("Queue:Scheduler:Registered", "cron", cronSpec, "type", taskType, "entry_id", id)
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}

type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { logger.Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logger.Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logger.Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logger.Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { logger.Error(fmt.Sprint(args...)) }
