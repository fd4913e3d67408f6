// internal/handler/campaign_handler.go
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

type CampaignReader interface {
	ListCampaigns(ctx context.Context, page, pageSize int) ([]model.Campaign, map[string]int, error)
	GetCampaignDetailsWithStats(ctx context.Context, id int64) (*service.CampaignDetails, error)
}

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Service CampaignReader
}

func NewCampaignHandler(svc CampaignReader) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(campaigns, pagination))
}

// GetCampaignHandlerWithStats returns one campaign with its delivery counts.
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, appErrors.NewValidation("id", "invalid campaign id"))
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
