package http

import (
	"net/http"

	"github.com/dulgistudio/dulgi/internal/modules/auth/dto"
	authService "github.com/dulgistudio/dulgi/internal/modules/auth/service"
	"github.com/dulgistudio/dulgi/pkg/response"
	"github.com/dulgistudio/dulgi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service authService.AuthService
}

func NewAuthHandler(service authService.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.IssueToken(req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
