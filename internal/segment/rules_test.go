package segment_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/segment"
)

func TestParseRules_Recognized(t *testing.T) {
	rules, unknown, err := segment.ParseRules(json.RawMessage(`{"min_spend": 100.5, "max_visits": 3, "inactive_days": 30}`))
	require.NoError(t, err)
	assert.Empty(t, unknown)

	require.NotNil(t, rules.MinSpend)
	require.NotNil(t, rules.MaxVisits)
	require.NotNil(t, rules.InactiveDays)
	assert.Equal(t, 100.5, *rules.MinSpend)
	assert.Equal(t, 3, *rules.MaxVisits)
	assert.Equal(t, 30, *rules.InactiveDays)
}

func TestParseRules_EmptyDocuments(t *testing.T) {
	for _, raw := range []string{``, `null`, `{}`, `  `} {
		rules, unknown, err := segment.ParseRules(json.RawMessage(raw))
		require.NoError(t, err, "raw=%q", raw)
		assert.True(t, rules.IsEmpty(), "raw=%q", raw)
		assert.Empty(t, unknown)
	}
}

func TestParseRules_UnknownKeysAreReportedNotRejected(t *testing.T) {
	rules, unknown, err := segment.ParseRules(json.RawMessage(`{"zip": "10001", "min_spend": 5, "city": "Pune"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "zip"}, unknown)
	require.NotNil(t, rules.MinSpend)
	assert.Nil(t, rules.MaxVisits)
}

func TestParseRules_NullValueIsAbsent(t *testing.T) {
	rules, _, err := segment.ParseRules(json.RawMessage(`{"max_visits": null}`))
	require.NoError(t, err)
	assert.True(t, rules.IsEmpty())
}

func TestParseRules_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"not an object", `[1,2]`, "rules"},
		{"string spend", `{"min_spend": "100"}`, "rules.min_spend"},
		{"bool visits", `{"max_visits": true}`, "rules.max_visits"},
		{"fractional visits", `{"max_visits": 2.5}`, "rules.max_visits"},
		{"negative days", `{"inactive_days": -1}`, "rules.inactive_days"},
		{"huge days", `{"inactive_days": 1e9}`, "rules.inactive_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := segment.ParseRules(json.RawMessage(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)

			var ve *appErrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParseRules_IntegralFloatAccepted(t *testing.T) {
	rules, _, err := segment.ParseRules(json.RawMessage(`{"max_visits": 4.0}`))
	require.NoError(t, err)
	require.NotNil(t, rules.MaxVisits)
	assert.Equal(t, 4, *rules.MaxVisits)
}
