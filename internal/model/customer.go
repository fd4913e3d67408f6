// internal/model/customer.go
package model

import "time"

// Customer is owned by the customer store; this service only reads it.
type Customer struct {
	ID           int64      `db:"id" json:"id"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	TotalSpend   float64    `db:"total_spend" json:"total_spend"`
	Visits       int        `db:"visits" json:"visits"`
	LastActiveAt *time.Time `db:"last_active_at" json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
