package controller

import (
	"context"
	"net/http"

	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

type ReceiptService interface {
	Receive(ctx context.Context, r model.Receipt) (*service.Ack, error)
}

// ReceiptController is the vendor callback endpoint.
type ReceiptController struct {
	ReceiptService ReceiptService
}

func (c *ReceiptController) DeliveryReceipt(w http.ResponseWriter, r *http.Request) {
	var receipt model.Receipt
	if !decode(w, r, &receipt) {
		return
	}

	ack, err := c.ReceiptService.Receive(r.Context(), receipt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}
