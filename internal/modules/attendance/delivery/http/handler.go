package http

import (
	"net/http"
	"time"

	attendanceService "github.com/dulgistudio/dulgi/internal/modules/attendance/service"
	"github.com/dulgistudio/dulgi/pkg/apperror"
	"github.com/dulgistudio/dulgi/pkg/response"
	"github.com/dulgistudio/dulgi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type checkInRequest struct {
	UserID     string     `json:"user_id" binding:"required"`
	OccurredAt *time.Time `json:"occurred_at"`
}

type AttendanceHandler struct {
	service attendanceService.AttendanceService
}

func NewAttendanceHandler(service attendanceService.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// CheckIn records attendance for the logical day. A repeat check-in returns
// 409 so the gateway can answer "already checked in" without state change.
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	instant := time.Now()
	if req.OccurredAt != nil {
		instant = *req.OccurredAt
	}

	result, err := h.service.CheckIn(c.Request.Context(), req.UserID, instant)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !result.Accepted {
		response.ResponseError(c, apperror.ErrAlreadyCheckedIn)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
