package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// exportsKept bounds the export archive
const exportsKept = 20

// CreateExport writes the current state to the export archive
func (h *Handler) CreateExport(c *gin.Context) {
	info, err := h.Store.SaveExport(time.Now(), h.Node.GetFSM().Export())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if removed, err := h.Store.Prune(exportsKept); err != nil {
		zap.L().Warn("failed to prune exports", zap.Error(err))
	} else if removed > 0 {
		zap.L().Debug("pruned exports", zap.Int("removed", removed))
	}
	c.JSON(http.StatusCreated, info)
}

// GetExports lists stored exports, newest first
func (h *Handler) GetExports(c *gin.Context) {
	exports, err := h.Store.ListExports()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exports)
}

// GetLatestExport returns the newest export with its contents
func (h *Handler) GetLatestExport(c *gin.Context) {
	info, export, err := h.Store.LatestExport()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"taken_at": info.TakenAt,
		"size":     info.Size,
		"export":   export,
	})
}
