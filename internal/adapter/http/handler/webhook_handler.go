package handler

import (
	"net/http"

	"order-sync-gateway/internal/adapter/http/dto"
	"order-sync-gateway/internal/adapter/http/middleware"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler manages webhook subscribers and exposes delivery history.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// CreateSubscription handles POST /api/v1/webhooks/subscriptions.
func (h *WebhookHandler) CreateSubscription(c *gin.Context) {
	req := middleware.Body[dto.SubscriptionRequest](c)

	sub, err := h.webhookSvc.CreateSubscription(c.Request.Context(), req.ToPorts())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, dto.ToSubscriptionResponse(*sub))
}

// ListSubscriptions handles GET /api/v1/webhooks/subscriptions.
func (h *WebhookHandler) ListSubscriptions(c *gin.Context) {
	subs, err := h.webhookSvc.ListSubscriptions(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, dto.ToSubscriptionResponse(s))
	}
	response.OK(c, out)
}

// DeleteSubscription handles DELETE /api/v1/webhooks/subscriptions/:id.
func (h *WebhookHandler) DeleteSubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.Validation(apperror.Violation{Field: "id", Rule: "uuid", Message: "must be a UUID"}))
		return
	}
	if err := h.webhookSvc.DeleteSubscription(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDeliveries handles GET /api/v1/orders/:order_id/deliveries.
func (h *WebhookHandler) ListDeliveries(c *gin.Context) {
	logs, err := h.webhookSvc.ListDeliveries(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, logs)
}
