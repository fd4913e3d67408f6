// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unclebandit/crm-backend/internal/auth"
	"github.com/unclebandit/crm-backend/internal/clock"
	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/handler"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
	"github.com/unclebandit/crm-backend/internal/segment"
	"github.com/unclebandit/crm-backend/internal/service"
	"github.com/unclebandit/crm-backend/internal/vendor"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.NewLogger(cfg.Log)
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	clk := clock.System{}
	customerRepo := &repository.CustomerRepository{DB: conn}
	segmentRepo := &repository.SegmentRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	logRepo := &repository.CommunicationLogRepository{DB: conn}

	seed, err := vendor.NewSeed()
	if err != nil {
		return err
	}
	simulator := vendor.NewSimulator(vendor.NewRandomOutcome(cfg.Vendor.SuccessRate, seed))
	receiptService := service.NewReceiptService(logRepo, clk)

	q, closeQueue, err := newQueue(ctx, cfg, simulator, receiptService)
	if err != nil {
		return err
	}
	defer closeQueue()

	evaluator := segment.NewEvaluator(customerRepo, clk)
	segmentService := service.NewSegmentService(segmentRepo, evaluator, clk)
	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		SegmentRepo:  segmentRepo,
		LogRepo:      logRepo,
		Evaluator:    evaluator,
		Queue:        q,
		Clock:        clk,
		BatchSize:    cfg.Dispatch.BatchSize,
	}

	if cfg.Reconcile.Schedule != "" {
		scheduler := cron.New()
		reconciler := &service.Reconciler{
			LogRepo:    logRepo,
			Queue:      q,
			Clock:      clk,
			StaleAfter: cfg.Reconcile.StaleAfter,
			BatchSize:  cfg.Reconcile.BatchSize,
		}
		if _, err := reconciler.Schedule(ctx, scheduler, cfg.Reconcile.Schedule); err != nil {
			return fmt.Errorf("schedule reconciler: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := newRouter(routes{
		verifier:  auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		health:    &handler.HealthHandler{DB: conn},
		segments:  &controller.SegmentController{SegmentService: segmentService},
		campaigns: &controller.CampaignController{CampaignService: campaignService},
		receipts:  &controller.ReceiptController{ReceiptService: receiptService},
		vendor:    &controller.VendorController{Vendor: simulator, Queue: q},

		segmentViews:  &handler.SegmentHandler{Service: segmentService},
		campaignViews: handler.NewCampaignHandler(campaignService),
		logViews:      &handler.LogHandler{Service: &service.LogService{LogRepo: logRepo}},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🚀 server running", "addr", cfg.HTTPAddr, "queue", queueKind(cfg))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newQueue picks the pipeline transport. With RabbitMQ the consumers live
// in cmd/worker; in-process queues get the vendor worker and the receipt
// subscriber attached here.
func newQueue(ctx context.Context, cfg *config.Config, v vendor.Vendor, receipts *service.ReceiptService) (queue.Queue, func(), error) {
	if cfg.Queue.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.Queue.AMQPURL, cfg.Queue.MaxRetries, cfg.Queue.Prefetch)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { q.Close() }, nil
	}

	retry := queue.WithRetry(cfg.Queue.MaxRetries, cfg.Queue.RetryDelay)
	var q *queue.InMemoryQueue
	if strings.EqualFold(cfg.Queue.Mode, "async") {
		q = queue.NewInMemoryQueue(retry)
	} else {
		q = queue.NewSyncQueue(retry)
	}

	if err := vendor.NewWorker(v, q, cfg.Vendor.Timeout).Start(ctx); err != nil {
		return nil, nil, err
	}
	if err := (&service.ReceiptSubscriber{Receipts: receipts}).Start(ctx, q); err != nil {
		return nil, nil, err
	}
	return q, q.Wait, nil
}

func queueKind(cfg *config.Config) string {
	if cfg.Queue.AMQPURL != "" {
		return "amqp"
	}
	return strings.ToLower(cfg.Queue.Mode)
}
