package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/handler"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

type mockCampaignReader struct {
	page, pageSize int
}

func (m *mockCampaignReader) ListCampaigns(ctx context.Context, page, pageSize int) ([]model.Campaign, map[string]int, error) {
	m.page, m.pageSize = page, pageSize
	return []model.Campaign{{ID: 2, SegmentID: 1, Message: "hi"}},
		map[string]int{"page": 1, "page_size": 20, "total_count": 1, "total_pages": 1}, nil
}

func (m *mockCampaignReader) GetCampaignDetailsWithStats(ctx context.Context, id int64) (*service.CampaignDetails, error) {
	if id != 2 {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return &service.CampaignDetails{
		ID: 2, SegmentID: 1, Message: "hi", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Stats: map[string]int{"total": 3, "PENDING": 0, "SENT": 2, "FAILED": 1},
	}, nil
}

type mockLogReader struct {
	campaignID int64
	status     model.LogStatus
}

func (m *mockLogReader) List(ctx context.Context, campaignID int64, status model.LogStatus, page, pageSize int) ([]model.CommunicationLog, map[string]int, error) {
	m.campaignID, m.status = campaignID, status
	if status != "" && !status.Valid() {
		return nil, nil, appErrors.NewValidation("status", "must be PENDING, SENT or FAILED")
	}
	return []model.CommunicationLog{{ID: 1, CampaignID: campaignID, Status: model.StatusSent}}, map[string]int{"total_count": 1}, nil
}

type mockSegmentReader struct{}

func (mockSegmentReader) List(ctx context.Context, page, pageSize int) ([]model.Segment, map[string]int, error) {
	return []model.Segment{{ID: 1, Name: "VIP", Rules: json.RawMessage(`{"min_spend":5000}`)}}, map[string]int{"total_count": 1}, nil
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func router() (*chi.Mux, *mockCampaignReader, *mockLogReader) {
	campaigns := &mockCampaignReader{}
	logs := &mockLogReader{}
	r := chi.NewRouter()
	ch := handler.NewCampaignHandler(campaigns)
	r.Get("/campaigns", ch.ListCampaignsHandler)
	r.Get("/campaigns/{id}", ch.GetCampaignHandlerWithStats)
	r.Get("/logs", (&handler.LogHandler{Service: logs}).ListLogsHandler)
	r.Get("/segments", (&handler.SegmentHandler{Service: mockSegmentReader{}}).ListSegmentsHandler)
	return r, campaigns, logs
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestListCampaignsHandler(t *testing.T) {
	r, campaigns, _ := router()

	rr := get(r, "/campaigns?page=3&page_size=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, campaigns.page)
	assert.Equal(t, 5, campaigns.pageSize)

	var body struct {
		Data       []model.Campaign `json:"data"`
		Pagination map[string]int   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 1, body.Pagination["total_count"])

	get(r, "/campaigns?page=abc")
	assert.Equal(t, 0, campaigns.page)
}

func TestGetCampaignHandlerWithStats(t *testing.T) {
	r, _, _ := router()

	rr := get(r, "/campaigns/2")
	require.Equal(t, http.StatusOK, rr.Code)
	var details service.CampaignDetails
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
	assert.Equal(t, 2, details.Stats["SENT"])
	assert.Equal(t, 3, details.Stats["total"])

	assert.Equal(t, http.StatusNotFound, get(r, "/campaigns/8").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/campaigns/abc").Code)
}

func TestListLogsHandler(t *testing.T) {
	r, _, logs := router()

	rr := get(r, "/logs?campaign_id=4&status=SENT")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(4), logs.campaignID)
	assert.Equal(t, model.StatusSent, logs.status)

	assert.Equal(t, http.StatusBadRequest, get(r, "/logs?campaign_id=x").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/logs?status=delivered").Code)
}

func TestListSegmentsHandler(t *testing.T) {
	r, _, _ := router()

	rr := get(r, "/segments")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"min_spend":5000`)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	(&handler.HealthHandler{DB: pinger{}}).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	(&handler.HealthHandler{DB: pinger{err: assert.AnError}}).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
