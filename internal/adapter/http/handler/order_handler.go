package handler

import (
	"net/http"

	"order-sync-gateway/internal/adapter/http/dto"
	"order-sync-gateway/internal/adapter/http/middleware"
	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles the order intake and sync record endpoints.
type OrderHandler struct {
	syncSvc ports.OrderSyncService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(syncSvc ports.OrderSyncService) *OrderHandler {
	return &OrderHandler{syncSvc: syncSvc}
}

// Submit handles POST /api/v1/orders. A new record answers 201; a known
// order answers 200 with the stored record. A run that ends FAILED answers
// with the status of its cause.
func (h *OrderHandler) Submit(c *gin.Context) {
	req := middleware.Body[dto.OrderRequest](c)

	rec, created, err := h.syncSvc.SubmitOrder(c.Request.Context(), req.ToDomain())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if failed(c, rec) {
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, dto.ToSyncRecordResponse(rec))
}

// Get handles GET /api/v1/orders/:order_id.
func (h *OrderHandler) Get(c *gin.Context) {
	rec, err := h.syncSvc.GetRecord(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, dto.ToSyncRecordResponse(rec))
}

// List handles GET /api/v1/orders.
func (h *OrderHandler) List(c *gin.Context) {
	q := middleware.Body[dto.ListOrdersQuery](c)

	recs, err := h.syncSvc.ListRecords(c.Request.Context(), q.ToFilter())
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]dto.SyncRecordResponse, 0, len(recs))
	for i := range recs {
		out = append(out, dto.ToSyncRecordResponse(&recs[i]))
	}
	response.OK(c, out)
}

// Reprocess handles POST /api/v1/orders/:order_id/reprocess.
func (h *OrderHandler) Reprocess(c *gin.Context) {
	rec, err := h.syncSvc.Reprocess(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if failed(c, rec) {
		return
	}
	response.OK(c, dto.ToSyncRecordResponse(rec))
}

// failed attaches the cause of a FAILED record for ErrorHandler to write.
func failed(c *gin.Context, rec *domain.SyncRecord) bool {
	if rec == nil || rec.Status != domain.StatusFailed {
		return false
	}
	cause := rec.LastError
	if cause == nil {
		cause = apperror.New(apperror.KindUnknown, "order processing failed")
	}
	_ = c.Error(cause)
	return true
}
