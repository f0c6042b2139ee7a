package payment

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lendfront/portal-core/internal/middleware"
	"github.com/lendfront/portal-core/internal/models"
	"github.com/lendfront/portal-core/internal/pkg/pagination"
	"github.com/lendfront/portal-core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/payments", authMW)

	g.GET("", h.list)
	g.POST("/:id/pay", h.pay)
}

func (h *Handler) list(c *gin.Context) {
	contractID := c.Query("contractId")
	if contractID == "" {
		response.BadRequest(c, "contractId is required")
		return
	}
	userID := middleware.CurrentUserID(c)
	if err := h.svc.contractOwned(userID, contractID); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.svc.MarkOverdue(contractID, time.Now()); err != nil {
		response.InternalError(c, err)
		return
	}

	q := pagination.FromContext(c)
	base := h.svc.db.Model(&models.PaymentModel{}).
		Where("contract_id = ?", contractID).
		Order("due_at ASC")

	var payments []models.PaymentModel
	meta, err := pagination.Paginate(base, q, &payments)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, payments, meta)
}

func (h *Handler) pay(c *gin.Context) {
	p, err := h.svc.MarkPaid(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errPaymentNotFound), errors.Is(err, errContractNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, errPaymentNotOpen):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
