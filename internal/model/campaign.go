// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID        int64     `db:"id" json:"id"`
	SegmentID int64     `db:"segment_id" json:"segment_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
