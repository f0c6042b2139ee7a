package verification

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lendfront/portal-core/internal/middleware"
	"github.com/lendfront/portal-core/internal/pkg/alert"
	"github.com/lendfront/portal-core/internal/pkg/response"
)

const signatureHeader = "X-Signature"

// Handler wires the verification HTTP endpoints.
type Handler struct {
	svc      *Service
	alertSvc *alert.Service
}

func NewHandler(svc *Service, alertSvc *alert.Service) *Handler {
	return &Handler{svc: svc, alertSvc: alertSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/verification")
	g.POST("/start", h.start)
	g.GET("/status", h.status)
	g.POST("/webhook", h.webhook)
}

func (h *Handler) start(c *gin.Context) {
	var dto StartVerificationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)
	if userID == "" {
		userID = dto.UserID
	}
	if userID == "" {
		response.BadRequest(c, "userId is required")
		return
	}
	userAgent := dto.UserAgent
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}

	result, err := h.svc.StartVerification(c.Request.Context(), userID, dto.Platform, userAgent)
	if err != nil {
		var pe *ProviderError
		switch {
		case errors.Is(err, ErrVerificationUnavailable):
			response.ServiceUnavailable(c, "verification is temporarily unavailable, please retry")
		case errors.As(err, &pe) && !pe.Unavailable:
			// Provider rejections carry a user-facing message verbatim.
			response.UnprocessableEntity(c, pe.Message)
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, startResponse{
		ProviderSessionID: result.ProviderSessionID,
		RedirectURL:       result.RedirectURL,
	})
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		userID = c.Query("userId")
	}
	if userID == "" {
		response.BadRequest(c, "userId is required")
		return
	}

	status, err := h.svc.GetStatus(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, statusResponse{Status: status.Wire()})
}

// webhook reads the body verbatim: signature verification runs over the exact
// bytes received, never over a re-encoded payload.
func (h *Handler) webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}

	if err := h.svc.ApplyWebhook(rawBody, c.GetHeader(signatureHeader)); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			// Repeated failures here are incident-worthy: someone is probing
			// the callback boundary or the shared secret rotated unevenly.
			if h.alertSvc != nil {
				go h.alertSvc.ThrottlePush("webhook signature rejected", c.ClientIP(), c.Request.URL.Path)
			}
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{"ok": true})
}
