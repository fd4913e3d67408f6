package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/unclebandit/crm-backend/internal/clock"
	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// ReceiptService applies vendor delivery receipts to communication logs.
// A log moves PENDING -> SENT|FAILED once; later receipts never change it.
type ReceiptService struct {
	LogRepo repository.CommunicationLogRepositoryInterface
	Clock   clock.Clock
}

func NewReceiptService(repo repository.CommunicationLogRepositoryInterface, clk clock.Clock) *ReceiptService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ReceiptService{LogRepo: repo, Clock: clk}
}

type Ack struct {
	LogID     int64           `json:"log_id"`
	Status    model.LogStatus `json:"status"`
	Updated   bool            `json:"updated"`
	Duplicate bool            `json:"duplicate,omitempty"`
}

func (s *ReceiptService) Receive(ctx context.Context, r model.Receipt) (*Ack, error) {
	if r.LogID <= 0 {
		return nil, appErrors.NewValidation("log_id", "must be a positive integer")
	}
	if !r.Status.IsTerminal() {
		return nil, appErrors.NewValidation("status", "must be SENT or FAILED")
	}
	if r.Status == model.StatusSent && strings.TrimSpace(r.VendorMessageID) == "" {
		return nil, appErrors.NewValidation("vendor_message_id", "is required for SENT")
	}

	current, err := s.LogRepo.GetByID(ctx, r.LogID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return settled(current, r)
	}

	updated, err := s.LogRepo.UpdateStatusIfPending(ctx, r.LogID, r.Status, r.VendorMessageID, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		// another receipt won the race
		current, err = s.LogRepo.GetByID(ctx, r.LogID)
		if err != nil {
			return nil, err
		}
		return settled(current, r)
	}

	slog.DebugContext(ctx, "receipt applied", "log_id", r.LogID, "status", r.Status)
	return &Ack{LogID: r.LogID, Status: r.Status, Updated: true}, nil
}

// settled handles a receipt for a log that is already terminal.
func settled(current *model.CommunicationLog, r model.Receipt) (*Ack, error) {
	if current.Status == r.Status && current.VendorMessageID == r.VendorMessageID {
		return &Ack{LogID: current.ID, Status: current.Status, Duplicate: true}, nil
	}
	return nil, &appErrors.TransitionError{LogID: current.ID, From: string(current.Status), To: string(r.Status)}
}

// ReceiptSubscriber feeds receipts from the queue into ReceiptService.
type ReceiptSubscriber struct {
	Receipts *ReceiptService
}

func (s *ReceiptSubscriber) Start(ctx context.Context, q queue.Queue) error {
	return q.Subscribe(ctx, queue.TopicDeliveryReceipt, s.Handle)
}

// Handle drops receipts that can never succeed and returns the rest of the
// errors so the queue retries them.
func (s *ReceiptSubscriber) Handle(ctx context.Context, body []byte) error {
	var r model.Receipt
	if err := json.Unmarshal(body, &r); err != nil {
		slog.WarnContext(ctx, "dropping undecodable receipt", "err", err)
		return nil
	}

	_, err := s.Receipts.Receive(ctx, r)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, appErrors.ErrNotFound),
		errors.Is(err, appErrors.ErrValidation),
		errors.Is(err, appErrors.ErrInvalidTransition):
		slog.WarnContext(ctx, "receipt rejected", "log_id", r.LogID, "status", r.Status, "err", err)
		return nil
	default:
		return err
	}
}
