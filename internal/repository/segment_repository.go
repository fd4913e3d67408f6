package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

type SegmentRepositoryInterface interface {
	Create(ctx context.Context, s *model.Segment) error
	GetByID(ctx context.Context, id int64) (*model.Segment, error)
	List(ctx context.Context, page Page) ([]model.Segment, int, error)
}

type SegmentRepository struct {
	DB *sql.DB
}

// Create persists the segment with its rules untouched; CreatedAt must be set
// by the caller.
func (r *SegmentRepository) Create(ctx context.Context, s *model.Segment) error {
	rules := string(s.Rules)
	if rules == "" {
		rules = "{}"
	}
	query := `
        INSERT INTO segments (name, rules, audience_size, created_at)
        VALUES ($1, $2::jsonb, $3, $4)
        RETURNING id
    `
	if err := r.DB.QueryRowContext(ctx, query, s.Name, rules, s.AudienceSize, s.CreatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("create segment %q: %w", s.Name, err)
	}
	return nil
}

func (r *SegmentRepository) GetByID(ctx context.Context, id int64) (*model.Segment, error) {
	query := `SELECT id, name, rules, audience_size, created_at FROM segments WHERE id = $1`

	var (
		s     model.Segment
		rules []byte
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &rules, &s.AudienceSize, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("segment", id)
		}
		return nil, fmt.Errorf("get segment %d: %w", id, err)
	}
	s.Rules = rules
	return &s, nil
}

func (r *SegmentRepository) List(ctx context.Context, page Page) ([]model.Segment, int, error) {
	query, args, err := page.apply(
		psql.Select("id", "name", "rules", "audience_size", "created_at").
			From("segments").
			OrderBy("created_at DESC", "id DESC"),
	).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build segment list: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := []model.Segment{}
	for rows.Next() {
		var (
			s     model.Segment
			rules []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &rules, &s.AudienceSize, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan segment: %w", err)
		}
		s.Rules = rules
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count segments: %w", err)
	}
	return segments, total, nil
}

var _ SegmentRepositoryInterface = (*SegmentRepository)(nil)
