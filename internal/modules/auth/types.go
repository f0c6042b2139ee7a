package auth

import (
	"errors"
	"strings"
	"time"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Mail     string `json:"mail"     binding:"omitempty,email"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type sessionItem struct {
	ID        string    `json:"id"`
	IP        string    `json:"ipAddress"`
	UA        string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Current   bool      `json:"current"`
}

var (
	errAuthUserNotFound  = errors.New("auth user not found")
	errAuthWrongPassword = errors.New("auth wrong password")
	errUsernameTaken     = errors.New("username already taken")
)

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}
