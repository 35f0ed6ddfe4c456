package http

import (
	"log"
	"net/http"
	"time"

	"github.com/dulgistudio/dulgi/internal/modules/accrual/dto"
	accrualService "github.com/dulgistudio/dulgi/internal/modules/accrual/service"
	"github.com/dulgistudio/dulgi/pkg/response"
	"github.com/dulgistudio/dulgi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AccrualHandler struct {
	service accrualService.AccrualService
}

func NewAccrualHandler(service accrualService.AccrualService) *AccrualHandler {
	return &AccrualHandler{service: service}
}

// IngestEvent applies one engagement event and returns the accrual outcome.
// Policy rejections come back as 200 with accepted=false so the gateway can
// stay silent; only storage failures are 5xx and retryable.
func (h *AccrualHandler) IngestEvent(c *gin.Context) {
	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	instant := time.Now()
	if req.OccurredAt != nil {
		instant = *req.OccurredAt
	}

	out, err := h.service.AddActivity(c.Request.Context(), req.UserID, instant, req.ChannelID, req.EvidenceQualified)
	if err != nil {
		if req.EventID != "" {
			log.Printf("❌ event %s for user %s failed: %v", req.EventID, req.UserID, err)
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}
