package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, page Page) ([]*model.Campaign, int, error)
	GetCampaignStats(ctx context.Context, campaignID int64) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	query := `
        INSERT INTO campaigns (segment_id, message, created_at)
        VALUES ($1, $2, $3)
        RETURNING id
    `
	if err := r.DB.QueryRowContext(ctx, query, c.SegmentID, c.Message, c.CreatedAt).Scan(&c.ID); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT id, segment_id, message, created_at FROM campaigns WHERE id = $1`

	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.SegmentID, &c.Message, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("get campaign %d: %w", id, err)
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, page Page) ([]*model.Campaign, int, error) {
	query, args, err := page.apply(
		psql.Select("id", "segment_id", "message", "created_at").
			From("campaigns").
			OrderBy("id DESC"),
	).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build campaign list: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.SegmentID, &c.Message, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}
	return campaigns, total, nil
}

// GetCampaignStats counts the campaign's logs per status. Every known status
// is present in the result, plus "total".
func (r *CampaignRepository) GetCampaignStats(ctx context.Context, campaignID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM communication_logs WHERE campaign_id = $1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign %d stats: %w", campaignID, err)
	}
	defer rows.Close()

	stats := EmptyStats()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

// EmptyStats is the zero value of a stats map.
func EmptyStats() map[string]int {
	return map[string]int{
		"total":                     0,
		string(model.StatusPending): 0,
		string(model.StatusSent):    0,
		string(model.StatusFailed):  0,
	}
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
