// internal/model/segment.go
package model

import (
	"encoding/json"
	"time"
)

type Segment struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	// Rules is stored exactly as submitted; unknown keys survive.
	Rules        json.RawMessage `db:"rules" json:"rules"`
	AudienceSize int             `db:"audience_size" json:"audience_size"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
