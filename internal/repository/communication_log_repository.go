package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

// CommunicationLogRepositoryInterface covers the two writers of the log
// table (dispatcher inserts, receipt handler updates) and the readers.
type CommunicationLogRepositoryInterface interface {
	CreatePending(ctx context.Context, campaignID int64, customerIDs []int64, now time.Time, batchSize int) ([]model.CommunicationLog, error)
	GetByID(ctx context.Context, id int64) (*model.CommunicationLog, error)
	UpdateStatusIfPending(ctx context.Context, id int64, status model.LogStatus, vendorMessageID string, now time.Time) (bool, error)
	List(ctx context.Context, filter LogFilter) ([]model.CommunicationLog, int, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.PendingDelivery, error)
	TouchPending(ctx context.Context, ids []int64, now time.Time) error
}

type CommunicationLogRepository struct {
	DB *sql.DB
}

// LogFilter narrows log listings. Zero fields are ignored.
type LogFilter struct {
	CampaignID int64
	Status     model.LogStatus
	Page       Page
}

var logColumns = []string{"id", "campaign_id", "customer_id", "status", "vendor_message_id", "detail", "created_at", "updated_at"}

func scanLog(row scanner, l *model.CommunicationLog) error {
	return row.Scan(&l.ID, &l.CampaignID, &l.CustomerID, &l.Status, &l.VendorMessageID, &l.Detail, &l.CreatedAt, &l.UpdatedAt)
}

// buildPendingInsert is one multi-row INSERT for a batch of customers.
func buildPendingInsert(campaignID int64, customerIDs []int64, now time.Time) sq.InsertBuilder {
	b := psql.Insert("communication_logs").
		Columns("campaign_id", "customer_id", "status", "vendor_message_id", "detail", "created_at", "updated_at")
	for _, id := range customerIDs {
		b = b.Values(campaignID, id, string(model.StatusPending), "", "", now, now)
	}
	return b.Suffix("RETURNING id, campaign_id, customer_id, status, vendor_message_id, detail, created_at, updated_at")
}

// CreatePending inserts one PENDING log per customer, batchSize rows per
// statement, all inside one transaction.
func (r *CommunicationLogRepository) CreatePending(ctx context.Context, campaignID int64, customerIDs []int64, now time.Time, batchSize int) ([]model.CommunicationLog, error) {
	if len(customerIDs) == 0 {
		return []model.CommunicationLog{}, nil
	}
	if batchSize <= 0 {
		batchSize = len(customerIDs)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin log insert: %w", err)
	}
	defer tx.Rollback()

	logs := make([]model.CommunicationLog, 0, len(customerIDs))
	for start := 0; start < len(customerIDs); start += batchSize {
		end := min(start+batchSize, len(customerIDs))

		query, args, err := buildPendingInsert(campaignID, customerIDs[start:end], now).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build log insert: %w", err)
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("insert logs for campaign %d: %w", campaignID, err)
		}
		for rows.Next() {
			var l model.CommunicationLog
			if err := scanLog(rows, &l); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan inserted log: %w", err)
			}
			logs = append(logs, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit log insert: %w", err)
	}
	return logs, nil
}

func (r *CommunicationLogRepository) GetByID(ctx context.Context, id int64) (*model.CommunicationLog, error) {
	query, args, err := psql.Select(logColumns...).From("communication_logs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var l model.CommunicationLog
	if err := scanLog(r.DB.QueryRowContext(ctx, query, args...), &l); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("communication log", id)
		}
		return nil, fmt.Errorf("get communication log %d: %w", id, err)
	}
	return &l, nil
}

// UpdateStatusIfPending writes status, vendor_message_id and updated_at only,
// and only while the row is still PENDING. It reports whether a row changed.
func (r *CommunicationLogRepository) UpdateStatusIfPending(ctx context.Context, id int64, status model.LogStatus, vendorMessageID string, now time.Time) (bool, error) {
	query := `
        UPDATE communication_logs
        SET status = $1, vendor_message_id = $2, updated_at = $3
        WHERE id = $4 AND status = 'PENDING'
    `
	res, err := r.DB.ExecContext(ctx, query, string(status), vendorMessageID, now, id)
	if err != nil {
		return false, fmt.Errorf("update communication log %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func buildLogList(filter LogFilter) sq.SelectBuilder {
	b := psql.Select(logColumns...).From("communication_logs")
	return filter.Page.apply(applyLogFilter(b, filter).OrderBy("created_at DESC", "id DESC"))
}

func applyLogFilter(b sq.SelectBuilder, filter LogFilter) sq.SelectBuilder {
	if filter.CampaignID != 0 {
		b = b.Where(sq.Eq{"campaign_id": filter.CampaignID})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	return b
}

func (r *CommunicationLogRepository) List(ctx context.Context, filter LogFilter) ([]model.CommunicationLog, int, error) {
	query, args, err := buildLogList(filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build log list: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list communication logs: %w", err)
	}
	defer rows.Close()

	logs := []model.CommunicationLog{}
	for rows.Next() {
		var l model.CommunicationLog
		if err := scanLog(rows, &l); err != nil {
			return nil, 0, fmt.Errorf("scan communication log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := applyLogFilter(psql.Select("COUNT(*)").From("communication_logs"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count communication logs: %w", err)
	}
	return logs, total, nil
}

func buildStalePending(olderThan time.Time, limit int) sq.SelectBuilder {
	return psql.Select("l.id", "cu.email", "ca.message").
		From("communication_logs l").
		Join("customers cu ON cu.id = l.customer_id").
		Join("campaigns ca ON ca.id = l.campaign_id").
		Where(sq.Eq{"l.status": string(model.StatusPending)}).
		Where(sq.Lt{"l.updated_at": olderThan}).
		OrderBy("l.updated_at", "l.id").
		Limit(uint64(limit))
}

// ListStalePending returns PENDING logs untouched since olderThan together
// with what is needed to resend them.
func (r *CommunicationLogRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.PendingDelivery, error) {
	query, args, err := buildStalePending(olderThan, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stale pending query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stale pending logs: %w", err)
	}
	defer rows.Close()

	var out []model.PendingDelivery
	for rows.Next() {
		var p model.PendingDelivery
		if err := rows.Scan(&p.LogID, &p.Email, &p.Message); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TouchPending bumps updated_at on resent PENDING logs so the next sweep
// does not pick them up again right away.
func (r *CommunicationLogRepository) TouchPending(ctx context.Context, ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Update("communication_logs").
		Set("updated_at", now).
		Where(sq.Eq{"id": ids, "status": string(model.StatusPending)}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch pending logs: %w", err)
	}
	return nil
}

var _ CommunicationLogRepositoryInterface = (*CommunicationLogRepository)(nil)
