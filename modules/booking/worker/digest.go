package worker

import (
	"context"
	"time"

	"scheduling-engine/core/logger"
	"scheduling-engine/core/queue"
	"scheduling-engine/core/timemath"
	availEntity "scheduling-engine/modules/availability/entity"
	"scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/booking/service"

	"github.com/hibiken/asynq"
)

const TaskTypeDailyDigest = "booking:daily_digest"

type RulesLister interface {
	ListRules(ctx context.Context) ([]availEntity.AvailabilityRules, error)
}

// DigestJob sends every host a summary of their confirmed bookings for the
// next host-local day.
type DigestJob struct {
	rules    RulesLister
	ledger   *service.Ledger
	notifier service.NotificationDispatcher
	now      func() time.Time
}

func NewDigestJob(rules RulesLister, ledger *service.Ledger, notifier service.NotificationDispatcher) *DigestJob {
	return &DigestJob{rules: rules, ledger: ledger, notifier: notifier, now: time.Now}
}

// Run returns the number of digests sent. A failure for one host does not
// stop the others.
func (j *DigestJob) Run(ctx context.Context) (int, error) {
	hosts, err := j.rules.ListRules(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range hosts {
		loc, err := timemath.LoadLocation(r.Timezone)
		if err != nil || r.HostEmail == "" {
			continue
		}
		tomorrow := j.now().In(loc).AddDate(0, 0, 1)
		day := timemath.DayBounds(tomorrow, loc)
		bookings, err := j.ledger.ListHostBookings(ctx, r.HostID, day)
		if err != nil {
			logger.Error("DigestJob:Run:ListFailed", "host_id", r.HostID, "error", err)
			continue
		}

		items := make([]map[string]any, 0, len(bookings))
		for _, b := range bookings {
			if b.Status != entity.StatusConfirmed {
				continue
			}
			items = append(items, map[string]any{
				"booking_id":  b.ID,
				"guest_name":  b.GuestName,
				"guest_email": b.GuestEmail,
				"start_time":  b.StartTime,
				"end_time":    b.EndTime,
			})
		}
		if len(items) == 0 {
			continue
		}

		data := map[string]any{
			"host_id":    r.HostID,
			"host_email": r.HostEmail,
			"host_name":  r.HostName,
			"date":       tomorrow.Format("2006-01-02"),
			"bookings":   items,
		}
		if err := j.notifier.Send(ctx, service.TemplateDailyDigest, r.HostEmail, data); err != nil {
			logger.Error("DigestJob:Run:SendFailed", "host_id", r.HostID, "error", err)
			continue
		}
		sent++
	}
	logger.Info("DigestJob:Run:Done", "hosts", len(hosts), "sent", sent)
	return sent, nil
}

func RegisterDigest(srv *queue.Server, job *DigestJob) {
	srv.HandleFunc(TaskTypeDailyDigest, func(ctx context.Context, _ *asynq.Task) error {
		_, err := job.Run(ctx)
		return err
	})
}
