package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/crm-backend/internal/auth"
	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/handler"
)

type routes struct {
	verifier *auth.Verifier
	health   *handler.HealthHandler

	segments  *controller.SegmentController
	campaigns *controller.CampaignController
	receipts  *controller.ReceiptController
	vendor    *controller.VendorController

	segmentViews  *handler.SegmentHandler
	campaignViews *handler.CampaignHandler
	logViews      *handler.LogHandler
}

// newRouter mounts the API. Vendor callbacks and health are public,
// everything else needs a bearer token.
func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", rt.health.Health)
	r.Post("/vendor/send", rt.vendor.Send)
	r.Post("/delivery/receipt", rt.receipts.DeliveryReceipt)

	r.Group(func(r chi.Router) {
		r.Use(rt.verifier.Middleware)

		// Segment routes
		r.Post("/segments", rt.segments.CreateSegment)
		r.Get("/segments", rt.segmentViews.ListSegmentsHandler)
		r.Post("/segments/preview", rt.segments.PreviewSegment)

		// Campaign routes
		r.Post("/campaigns", rt.campaigns.CreateCampaign)
		r.Get("/campaigns", rt.campaignViews.ListCampaignsHandler)
		r.Get("/campaigns/{id}", rt.campaignViews.GetCampaignHandlerWithStats)

		r.Get("/logs", rt.logViews.ListLogsHandler)
	})

	return r
}
