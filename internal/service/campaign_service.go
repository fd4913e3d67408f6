// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/crm-backend/internal/clock"
	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
	"github.com/unclebandit/crm-backend/internal/segment"
)

const DefaultBatchSize = 500

// CampaignService creates campaigns and dispatches them to their segment.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	SegmentRepo  repository.SegmentRepositoryInterface
	LogRepo      repository.CommunicationLogRepositoryInterface
	Evaluator    *segment.Evaluator
	Queue        queue.Queue
	Clock        clock.Clock
	BatchSize    int
	// NewMessageID mints vendor message ids; uuid v4 when nil.
	NewMessageID func() string
}

// DispatchResult summarizes one dispatch run.
type DispatchResult struct {
	CampaignID     int64 `json:"campaign_id"`
	AudienceSize   int   `json:"audience_size"`
	LogsCreated    int   `json:"logs_created"`
	SendsSubmitted int   `json:"sends_submitted"`
	SendsFailed    int   `json:"sends_failed"`
}

type CampaignDetails struct {
	ID        int64          `json:"id"`
	SegmentID int64          `json:"segment_id"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	Stats     map[string]int `json:"stats"`
}

func (s *CampaignService) now() time.Time {
	if s.Clock == nil {
		return clock.System{}.Now()
	}
	return s.Clock.Now()
}

func (s *CampaignService) messageID() string {
	if s.NewMessageID != nil {
		return s.NewMessageID()
	}
	return uuid.NewString()
}

// CreateCampaign persists the campaign and dispatches it once. Once the
// campaign is stored, cancelling ctx no longer stops the dispatch. A dispatch
// error is returned together with the stored campaign.
func (s *CampaignService) CreateCampaign(ctx context.Context, segmentID int64, message string) (*model.Campaign, *DispatchResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil, appErrors.NewValidation("message", "must not be blank")
	}
	if _, err := s.SegmentRepo.GetByID(ctx, segmentID); err != nil {
		return nil, nil, err
	}

	c := &model.Campaign{
		SegmentID: segmentID,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, nil, err
	}
	slog.InfoContext(ctx, "campaign created", "campaign_id", c.ID, "segment_id", segmentID)

	// runs to completion even if the caller goes away
	result, err := s.Dispatch(context.WithoutCancel(ctx), c)
	if err != nil {
		return c, nil, fmt.Errorf("dispatch campaign %d: %w", c.ID, err)
	}
	return c, result, nil
}

// Dispatch re-evaluates the campaign's segment, records one PENDING log per
// matched customer and hands each one to the vendor queue. Publish failures
// are counted and leave the log PENDING.
func (s *CampaignService) Dispatch(ctx context.Context, c *model.Campaign) (*DispatchResult, error) {
	seg, err := s.SegmentRepo.GetByID(ctx, c.SegmentID)
	if err != nil {
		return nil, err
	}
	rules, _, err := segment.ParseRules(seg.Rules)
	if err != nil {
		return nil, fmt.Errorf("segment %d rules: %w", seg.ID, err)
	}

	audience, err := s.Evaluator.Audience(ctx, rules)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{CampaignID: c.ID, AudienceSize: len(audience)}
	if len(audience) == 0 {
		slog.InfoContext(ctx, "campaign has empty audience", "campaign_id", c.ID)
		return result, nil
	}

	ids := make([]int64, len(audience))
	emails := make(map[int64]string, len(audience))
	for i, cust := range audience {
		ids[i] = cust.ID
		emails[cust.ID] = cust.Email
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	logs, err := s.LogRepo.CreatePending(ctx, c.ID, ids, s.now(), batch)
	if err != nil {
		return nil, err
	}
	result.LogsCreated = len(logs)

	for _, l := range logs {
		task := model.SendTask{
			LogID:           l.ID,
			To:              emails[l.CustomerID],
			Message:         c.Message,
			VendorMessageID: s.messageID(),
		}
		if err := queue.PublishJSON(ctx, s.Queue, queue.TopicVendorSend, task); err != nil {
			slog.WarnContext(ctx, "send task not submitted", "campaign_id", c.ID, "log_id", l.ID, "err", err)
			result.SendsFailed++
			continue
		}
		result.SendsSubmitted++
	}

	slog.InfoContext(ctx, "campaign dispatched",
		"campaign_id", c.ID,
		"audience", result.AudienceSize,
		"submitted", result.SendsSubmitted,
		"failed", result.SendsFailed,
	)
	return result, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int) ([]model.Campaign, map[string]int, error) {
	window, page, pageSize := paginate(page, pageSize)

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, window)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}
	return campaigns, paginationMeta(page, pageSize, total), nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, id int64) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{
		ID:        c.ID,
		SegmentID: c.SegmentID,
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
		Stats:     stats,
	}, nil
}
