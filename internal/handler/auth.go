package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockroom/internal/apierror"
	"stockroom/internal/dto"
	"stockroom/internal/service"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, apierror.New("invalid credentials"))
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
