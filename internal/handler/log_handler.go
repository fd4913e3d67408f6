package handler

import (
	"context"
	"net/http"
	"strconv"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

type LogReader interface {
	List(ctx context.Context, campaignID int64, status model.LogStatus, page, pageSize int) ([]model.CommunicationLog, map[string]int, error)
}

type LogHandler struct {
	Service LogReader
}

// ListLogsHandler supports ?campaign_id=&status=&page=&page_size=.
func (h *LogHandler) ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	var campaignID int64
	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, appErrors.NewValidation("campaign_id", "must be a positive integer"))
			return
		}
		campaignID = id
	}
	status := model.LogStatus(r.URL.Query().Get("status"))
	page, pageSize := pageParams(r)

	logs, pagination, err := h.Service.List(r.Context(), campaignID, status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(logs, pagination))
}
