package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lendfront/portal-core/internal/middleware"
	jwtpkg "github.com/lendfront/portal-core/internal/pkg/jwt"
	"github.com/lendfront/portal-core/internal/pkg/response"
	sessionpkg "github.com/lendfront/portal-core/internal/pkg/session"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", h.login)
	a.POST("/register", h.register)
	a.POST("/sign-out", h.signOut)
	a.GET("/me", authMW, h.me)
	a.GET("/sessions", authMW, h.listSessions)
	a.POST("/revoke-session", authMW, h.revokeSession)
	a.POST("/revoke-other-sessions", authMW, h.revokeOtherSessions)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errAuthUserNotFound) || errors.Is(err, errAuthWrongPassword) {
			response.ForbiddenMsg(c, "invalid username or password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			response.Conflict(c, "username already taken")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"id": u.ID, "username": u.Username})
}

func (h *Handler) signOut(c *gin.Context) {
	if token := middleware.NormalizeToken(c.GetHeader("Authorization")); token != "" {
		if claims, err := jwtpkg.Parse(token); err == nil {
			sessionID := strings.TrimSpace(claims.SessionID)
			userID := strings.TrimSpace(claims.UserID)
			if sessionID != "" && userID != "" {
				_ = sessionpkg.Revoke(h.svc.db, userID, sessionID)
			}
		}
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Profile(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"name":          displayName(u.Name, u.Username),
		"mail":          u.Mail,
		"role":          u.Role,
		"lastLoginTime": u.LastLoginTime,
		"createdAt":     u.CreatedAt,
	})
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	current := middleware.CurrentSessionID(c)
	sessions, err := sessionpkg.ListActive(h.svc.db, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]sessionItem, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionItem{
			ID:        s.ID,
			IP:        s.IP,
			UA:        s.UA,
			ExpiresAt: s.ExpiresAt,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
			Current:   s.ID == current,
		})
	}
	response.OK(c, items)
}

func (h *Handler) revokeSession(c *gin.Context) {
	var body struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), body.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}

func (h *Handler) revokeOtherSessions(c *gin.Context) {
	err := sessionpkg.RevokeAllExcept(h.svc.db,
		middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"status": true})
}
