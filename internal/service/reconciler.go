package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/unclebandit/crm-backend/internal/clock"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// Reconciler resubmits logs that stayed PENDING longer than StaleAfter,
// e.g. because the send was never published or its receipt was lost.
type Reconciler struct {
	LogRepo    repository.CommunicationLogRepositoryInterface
	Queue      queue.Queue
	Clock      clock.Clock
	StaleAfter time.Duration
	BatchSize  int
}

// SweepStuck republishes up to BatchSize stale PENDING logs and returns how
// many were resubmitted.
func (r *Reconciler) SweepStuck(ctx context.Context) (int, error) {
	now := r.Clock.Now()
	stale, err := r.LogRepo.ListStalePending(ctx, now.Add(-r.StaleAfter), r.BatchSize)
	if err != nil {
		return 0, err
	}

	resent := make([]int64, 0, len(stale))
	for _, d := range stale {
		task := model.SendTask{
			LogID:           d.LogID,
			To:              d.Email,
			Message:         d.Message,
			VendorMessageID: uuid.NewString(),
		}
		if err := queue.PublishJSON(ctx, r.Queue, queue.TopicVendorSend, task); err != nil {
			slog.WarnContext(ctx, "resend failed", "log_id", d.LogID, "err", err)
			continue
		}
		resent = append(resent, d.LogID)
	}

	if err := r.LogRepo.TouchPending(ctx, resent, now); err != nil {
		return len(resent), err
	}
	return len(resent), nil
}

// Schedule registers the sweep on c under the given cron spec.
func (r *Reconciler) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		n, err := r.SweepStuck(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "reconcile sweep failed", "err", err)
			return
		}
		if n > 0 {
			slog.InfoContext(ctx, "reconcile sweep resubmitted logs", "count", n)
		}
	})
}
