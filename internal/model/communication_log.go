// internal/model/communication_log.go
package model

import "time"

// LogStatus is the delivery state of one (campaign, customer) pair.
type LogStatus string

const (
	StatusPending LogStatus = "PENDING"
	StatusSent    LogStatus = "SENT"
	StatusFailed  LogStatus = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s LogStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal is true for SENT and FAILED.
func (s LogStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

type CommunicationLog struct {
	ID              int64     `db:"id" json:"id"`
	CampaignID      int64     `db:"campaign_id" json:"campaign_id"`
	CustomerID      int64     `db:"customer_id" json:"customer_id"`
	Status          LogStatus `db:"status" json:"status"`
	VendorMessageID string    `db:"vendor_message_id" json:"vendor_message_id"`
	Detail          string    `db:"detail" json:"detail,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PendingDelivery joins a PENDING log with what is needed to resend it.
type PendingDelivery struct {
	LogID   int64
	Email   string
	Message string
}
