package handler

import (
	"order-sync-gateway/internal/adapter/http/dto"
	"order-sync-gateway/internal/adapter/http/middleware"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// TrackingHandler receives shipment events pushed by the fulfillment provider.
type TrackingHandler struct {
	syncSvc ports.OrderSyncService
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(syncSvc ports.OrderSyncService) *TrackingHandler {
	return &TrackingHandler{syncSvc: syncSvc}
}

// Push handles POST /api/v1/tracking.
func (h *TrackingHandler) Push(c *gin.Context) {
	req := middleware.Body[dto.TrackingRequest](c)

	rec, err := h.syncSvc.SyncTracking(c.Request.Context(), req.ToUpdate())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, dto.ToSyncRecordResponse(rec))
}
