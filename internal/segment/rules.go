// Package segment turns a stored rule document into an audience.
package segment

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
)

// Recognized rule keys.
const (
	KeyMinSpend     = "min_spend"
	KeyMaxVisits    = "max_visits"
	KeyInactiveDays = "inactive_days"
)

// maxInactiveDays keeps the cutoff computation well inside time.Time range.
const maxInactiveDays = 100 * 365

// Rules is the typed form of a segment rule document. Nil means "no constraint".
type Rules struct {
	MinSpend     *float64 `json:"min_spend,omitempty"`
	MaxVisits    *int     `json:"max_visits,omitempty"`
	InactiveDays *int     `json:"inactive_days,omitempty"`
}

func (r Rules) IsEmpty() bool {
	return r.MinSpend == nil && r.MaxVisits == nil && r.InactiveDays == nil
}

// ParseRules decodes a rule document. Unrecognized keys are returned sorted
// so callers can log them; they never cause an error. Values of recognized
// keys that are not numbers fail with a validation error.
func ParseRules(raw json.RawMessage) (Rules, []string, error) {
	var rules Rules

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rules, nil, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return rules, nil, appErrors.NewValidation("rules", "must be a JSON object")
	}

	var unknown []string
	for key, value := range doc {
		if isNull(value) {
			continue
		}
		switch key {
		case KeyMinSpend:
			f, err := parseNumber(key, value)
			if err != nil {
				return Rules{}, nil, err
			}
			rules.MinSpend = &f
		case KeyMaxVisits:
			n, err := parseCount(key, value, math.MaxInt32)
			if err != nil {
				return Rules{}, nil, err
			}
			rules.MaxVisits = &n
		case KeyInactiveDays:
			n, err := parseCount(key, value, maxInactiveDays)
			if err != nil {
				return Rules{}, nil, err
			}
			rules.InactiveDays = &n
		default:
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return rules, unknown, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func parseNumber(key string, v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, appErrors.NewValidation("rules."+key, "must be a number")
	}
	return f, nil
}

func parseCount(key string, v json.RawMessage, max int) (int, error) {
	f, err := parseNumber(key, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, appErrors.NewValidation("rules."+key, "must be an integer")
	}
	if f < 0 {
		return 0, appErrors.NewValidation("rules."+key, "must not be negative")
	}
	if f > float64(max) {
		return 0, appErrors.NewValidation("rules."+key, "is too large")
	}
	return int(f), nil
}
