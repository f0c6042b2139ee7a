package contract

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lendfront/portal-core/internal/middleware"
	"github.com/lendfront/portal-core/internal/models"
	"github.com/lendfront/portal-core/internal/pkg/pagination"
	"github.com/lendfront/portal-core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/contracts", authMW)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/submit", h.submit)
	g.POST("/:id/activate", h.activate)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateContractDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	contract, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, contract)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	base := h.svc.db.Model(&models.ContractModel{}).
		Where("user_id = ?", middleware.CurrentUserID(c)).
		Order("created_at DESC")

	var contracts []models.ContractModel
	meta, err := pagination.Paginate(base, q, &contracts)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, contracts, meta)
}

func (h *Handler) get(c *gin.Context) {
	contract, err := h.svc.Get(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, contract)
}

func (h *Handler) submit(c *gin.Context) {
	contract, err := h.svc.Submit(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, contract)
}

func (h *Handler) activate(c *gin.Context) {
	contract, err := h.svc.Activate(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, contract)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errContractNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, errIdentityNotVerified):
		response.ForbiddenMsg(c, err.Error())
	case errors.Is(err, errContractNotDraft), errors.Is(err, errContractNotSubmitted):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
