package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crm-backend/internal/model"
)

var ts = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestBuildPendingInsert_OneRowPerCustomer(t *testing.T) {
	query, args, err := buildPendingInsert(9, []int64{11, 12, 13}, ts).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO communication_logs"))
	assert.Contains(t, query, "RETURNING id, campaign_id, customer_id")
	assert.Equal(t, 21, strings.Count(query, "$"), "seven placeholders per customer")
	require.Len(t, args, 21)

	for row := 0; row < 3; row++ {
		base := row * 7
		assert.Equal(t, int64(9), args[base])
		assert.Equal(t, int64(11+row), args[base+1])
		assert.Equal(t, "PENDING", args[base+2])
		assert.Equal(t, "", args[base+3])
		assert.Equal(t, ts, args[base+5])
	}
}

func TestBuildLogList_Filters(t *testing.T) {
	query, args, err := buildLogList(LogFilter{
		CampaignID: 4,
		Status:     model.StatusFailed,
		Page:       Page{Limit: 20, Offset: 40},
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM communication_logs")
	assert.Contains(t, query, "campaign_id = $1")
	assert.Contains(t, query, "status = $2")
	assert.Contains(t, query, "ORDER BY created_at DESC, id DESC")
	assert.Equal(t, []any{int64(4), "FAILED"}, args[:2])
}

func TestBuildLogList_NoFilters(t *testing.T) {
	query, args, err := buildLogList(LogFilter{}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestBuildStalePending(t *testing.T) {
	query, args, err := buildStalePending(ts, 10).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "JOIN customers cu ON cu.id = l.customer_id")
	assert.Contains(t, query, "JOIN campaigns ca ON ca.id = l.campaign_id")
	assert.Contains(t, query, "l.status = $1")
	assert.Contains(t, query, "l.updated_at < $2")
	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, "PENDING", args[0])
	assert.Equal(t, ts, args[1])
}

func TestEmptyStats(t *testing.T) {
	stats := EmptyStats()
	assert.Equal(t, map[string]int{"total": 0, "PENDING": 0, "SENT": 0, "FAILED": 0}, stats)
}
