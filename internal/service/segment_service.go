package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/unclebandit/crm-backend/internal/clock"
	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/repository"
	"github.com/unclebandit/crm-backend/internal/segment"
)

// SegmentService is the segment registry: it sizes audiences and persists
// segments with their rules as given.
type SegmentService struct {
	SegmentRepo repository.SegmentRepositoryInterface
	Evaluator   *segment.Evaluator
	Clock       clock.Clock
}

func NewSegmentService(repo repository.SegmentRepositoryInterface, evaluator *segment.Evaluator, clk clock.Clock) *SegmentService {
	if clk == nil {
		clk = clock.System{}
	}
	return &SegmentService{SegmentRepo: repo, Evaluator: evaluator, Clock: clk}
}

func (s *SegmentService) parseRules(ctx context.Context, raw json.RawMessage) (segment.Rules, error) {
	rules, unknown, err := segment.ParseRules(raw)
	if err != nil {
		return segment.Rules{}, err
	}
	if len(unknown) > 0 {
		slog.DebugContext(ctx, "ignoring unknown rule keys", "keys", unknown)
	}
	return rules, nil
}

// Create evaluates the rules against the current customers and stores the
// segment with the resulting audience size.
func (s *SegmentService) Create(ctx context.Context, name string, raw json.RawMessage) (*model.Segment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.NewValidation("name", "must not be blank")
	}

	rules, err := s.parseRules(ctx, raw)
	if err != nil {
		return nil, err
	}

	audience, err := s.Evaluator.Audience(ctx, rules)
	if err != nil {
		return nil, err
	}

	seg := &model.Segment{
		Name:         name,
		Rules:        storedRules(raw),
		AudienceSize: len(audience),
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.SegmentRepo.Create(ctx, seg); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "segment created", "segment_id", seg.ID, "audience_size", seg.AudienceSize)
	return seg, nil
}

// Preview returns the audience size the rules would produce right now.
// Nothing is persisted.
func (s *SegmentService) Preview(ctx context.Context, raw json.RawMessage) (int, error) {
	rules, err := s.parseRules(ctx, raw)
	if err != nil {
		return 0, err
	}
	audience, err := s.Evaluator.Audience(ctx, rules)
	if err != nil {
		return 0, err
	}
	return len(audience), nil
}

func (s *SegmentService) Get(ctx context.Context, id int64) (*model.Segment, error) {
	return s.SegmentRepo.GetByID(ctx, id)
}

// List returns segments newest first.
func (s *SegmentService) List(ctx context.Context, page, pageSize int) ([]model.Segment, map[string]int, error) {
	window, page, pageSize := paginate(page, pageSize)

	segments, total, err := s.SegmentRepo.List(ctx, window)
	if err != nil {
		return nil, nil, err
	}
	return segments, paginationMeta(page, pageSize, total), nil
}

// storedRules keeps the document exactly as submitted, unknown keys
// included. A missing document is stored as {}.
func storedRules(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return append(json.RawMessage(nil), trimmed...)
}
