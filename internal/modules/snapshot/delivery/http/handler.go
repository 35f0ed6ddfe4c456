package http

import (
	"io"
	"net/http"

	snapshotService "github.com/dulgistudio/dulgi/internal/modules/snapshot/service"
	"github.com/dulgistudio/dulgi/pkg/apperror"
	"github.com/dulgistudio/dulgi/pkg/response"
	"github.com/gin-gonic/gin"
)

// maxSnapshotBytes bounds restore request bodies.
const maxSnapshotBytes = 64 << 20

type SnapshotHandler struct {
	service snapshotService.SnapshotService
}

func NewSnapshotHandler(service snapshotService.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{service: service}
}

// CreateSnapshot is the manual backup trigger.
func (h *SnapshotHandler) CreateSnapshot(c *gin.Context) {
	result, err := h.service.Capture(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// DownloadSnapshot streams the current ledger as a snapshot blob without
// persisting an artifact.
func (h *SnapshotHandler) DownloadSnapshot(c *gin.Context) {
	blob, err := h.service.Encode(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="snapshot.json"`)
	c.Data(http.StatusOK, "application/json", blob)
}

// Restore installs a snapshot blob. ?replace_all=true wipes users absent
// from the blob; the default merges per user record.
func (h *SnapshotHandler) Restore(c *gin.Context) {
	blob, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes))
	if err != nil || len(blob) == 0 {
		response.ResponseError(c, apperror.ErrInvalidSnapshot)
		return
	}

	replaceAll := c.Query("replace_all") == "true"

	count, err := h.service.Restore(c.Request.Context(), blob, replaceAll)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"restored_users": count,
		"replace_all":    replaceAll,
	}})
}
