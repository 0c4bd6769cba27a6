package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"github.com/devadigapratham/spoolkeeper/api/models"
	"github.com/devadigapratham/spoolkeeper/inventory"
)

// GetSpools lists a filament's spools, newest first
func (h *Handler) GetSpools(c *gin.Context) {
	spools, err := h.Node.GetFSM().GetSpools(c.Param("id"), includeArchived(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spools)
}

// CreateSpool adds one spool to a filament
func (h *Handler) CreateSpool(c *gin.Context) {
	var req models.CreateSpoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.Node.Apply(&models.Command{
		Type: models.AddSpool,
		NewSpool: &inventory.NewSpool{
			FilamentID:     c.Param("id"),
			StartingWeight: req.StartingWeight,
			EmptyWeight:    req.EmptyWeight,
			Weight:         req.Weight,
		},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetSpool returns a spool by ID
func (h *Handler) GetSpool(c *gin.Context) {
	id := c.Param("id")
	spool, ok := h.Node.GetFSM().GetSpool(id)
	if !ok {
		h.respondError(c, eris.Wrapf(inventory.ErrNotFound, "spool %s", id))
		return
	}
	c.JSON(http.StatusOK, spool)
}

// UpdateSpool edits a spool's weights or archived flag
func (h *Handler) UpdateSpool(c *gin.Context) {
	var req models.UpdateSpoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}
	h.updateSpool(c, req.Patch())
}

// ArchiveSpool sets a spool's archived flag
func (h *Handler) ArchiveSpool(c *gin.Context) {
	var req models.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.updateSpool(c, inventory.SpoolPatch{Archived: req.Archived})
}

func (h *Handler) updateSpool(c *gin.Context, patch inventory.SpoolPatch) {
	res, err := h.Node.Apply(&models.Command{
		Type:       models.UpdateSpool,
		SpoolID:    c.Param("id"),
		SpoolPatch: &patch,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
