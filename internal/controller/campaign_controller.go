// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"net/http"

	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

type CampaignService interface {
	CreateCampaign(ctx context.Context, segmentID int64, message string) (*model.Campaign, *service.DispatchResult, error)
}

type CampaignController struct {
	CampaignService CampaignService
}

// CreateCampaign stores the campaign and dispatches it before answering.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SegmentID int64  `json:"segment_id"`
		Message   string `json:"message"`
	}
	if !decode(w, r, &body) {
		return
	}

	campaign, result, err := c.CampaignService.CreateCampaign(r.Context(), body.SegmentID, body.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"campaign": campaign,
		"dispatch": result,
	})
}
