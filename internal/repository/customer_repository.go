package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/crm-backend/internal/model"
)

// CustomerRepositoryInterface is the read side of the customer store. The
// store belongs to another part of the CRM; segments only ever list it.
type CustomerRepositoryInterface interface {
	ListAll(ctx context.Context) ([]model.Customer, error)
}

type CustomerRepository struct {
	DB *sql.DB
}

const customerColumns = `id, full_name, email, phone, total_spend, visits, last_active_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner, c *model.Customer) error {
	var lastActive sql.NullTime
	if err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.TotalSpend, &c.Visits, &lastActive, &c.CreatedAt); err != nil {
		return err
	}
	if lastActive.Valid {
		t := lastActive.Time
		c.LastActiveAt = &t
	}
	return nil
}

// ListAll is the find_all used for audience evaluation, ordered by id so
// repeated evaluations return customers in the same order.
func (r *CustomerRepository) ListAll(ctx context.Context) ([]model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
