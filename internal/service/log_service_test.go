package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

func TestLogService_List(t *testing.T) {
	logs := seededLogs(t)
	_, err := logs.CreatePending(context.Background(), 2, []int64{10}, now, 500)
	require.NoError(t, err)
	_, err = logs.UpdateStatusIfPending(context.Background(), 1, model.StatusSent, "v", now)
	require.NoError(t, err)
	svc := &service.LogService{LogRepo: logs}

	got, meta, err := svc.List(context.Background(), 1, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, meta["total_count"])

	got, _, err = svc.List(context.Background(), 1, model.StatusPending, 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	_, _, err = svc.List(context.Background(), 0, "sent", 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
