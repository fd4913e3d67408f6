// cmd/worker consumes the RabbitMQ topics: it plays the vendor for send
// tasks and applies the resulting delivery receipts.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unclebandit/crm-backend/internal/clock"
	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
	"github.com/unclebandit/crm-backend/internal/service"
	"github.com/unclebandit/crm-backend/internal/vendor"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.NewLogger(cfg.Log)
	if cfg.Queue.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	q, err := queue.DialAMQP(cfg.Queue.AMQPURL, cfg.Queue.MaxRetries, cfg.Queue.Prefetch)
	if err != nil {
		return err
	}
	defer q.Close()

	seed, err := vendor.NewSeed()
	if err != nil {
		return err
	}
	v := vendor.NewSimulator(vendor.NewRandomOutcome(cfg.Vendor.SuccessRate, seed))
	receipts := service.NewReceiptService(&repository.CommunicationLogRepository{DB: conn}, clock.System{})

	if err := subscribe(ctx, q, v, cfg.Vendor.Timeout, receipts); err != nil {
		return err
	}

	slog.Info("worker running, waiting for messages...")
	<-ctx.Done()
	return nil
}

func subscribe(ctx context.Context, q queue.Queue, v vendor.Vendor, timeout time.Duration, receipts *service.ReceiptService) error {
	if err := vendor.NewWorker(v, q, timeout).Start(ctx); err != nil {
		return err
	}
	return (&service.ReceiptSubscriber{Receipts: receipts}).Start(ctx, q)
}
