package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/unclebandit/crm-backend/internal/model"
)

type SegmentService interface {
	Create(ctx context.Context, name string, rules json.RawMessage) (*model.Segment, error)
	Preview(ctx context.Context, rules json.RawMessage) (int, error)
}

type SegmentController struct {
	SegmentService SegmentService
}

func (c *SegmentController) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string          `json:"name"`
		Rules json.RawMessage `json:"rules"`
	}
	if !decode(w, r, &body) {
		return
	}

	seg, err := c.SegmentService.Create(r.Context(), body.Name, body.Rules)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, seg)
}

func (c *SegmentController) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rules json.RawMessage `json:"rules"`
	}
	if !decode(w, r, &body) {
		return
	}

	size, err := c.SegmentService.Preview(r.Context(), body.Rules)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"audience_size": size})
}
