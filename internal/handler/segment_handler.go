package handler

import (
	"context"
	"net/http"

	"github.com/unclebandit/crm-backend/internal/model"
)

type SegmentReader interface {
	List(ctx context.Context, page, pageSize int) ([]model.Segment, map[string]int, error)
}

type SegmentHandler struct {
	Service SegmentReader
}

func (h *SegmentHandler) ListSegmentsHandler(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	segments, pagination, err := h.Service.List(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(segments, pagination))
}
