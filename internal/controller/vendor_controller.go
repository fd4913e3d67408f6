package controller

import (
	"log/slog"
	"net/http"

	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/vendor"
)

// VendorController exposes the simulated vendor over HTTP. The receipt is
// published on the receipt topic just like the queue worker does.
type VendorController struct {
	Vendor vendor.Vendor
	Queue  queue.Queue
}

func (c *VendorController) Send(w http.ResponseWriter, r *http.Request) {
	var task model.SendTask
	if !decode(w, r, &task) {
		return
	}
	if task.LogID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "log_id is required"})
		return
	}

	receipt, err := c.Vendor.Send(r.Context(), task)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := queue.PublishJSON(r.Context(), c.Queue, queue.TopicDeliveryReceipt, receipt); err != nil {
		slog.WarnContext(r.Context(), "receipt not published", "log_id", receipt.LogID, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]model.LogStatus{"status": receipt.Status})
}
