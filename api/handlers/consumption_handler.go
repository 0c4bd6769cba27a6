package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/devadigapratham/spoolkeeper/api/models"
	"github.com/devadigapratham/spoolkeeper/inventory"
)

// CreateConsumption records filament usage and deducts it from the spools
func (h *Handler) CreateConsumption(c *gin.Context) {
	var req models.CreateConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	h.createEntry(c, inventory.NewEntry{
		ID:           uuid.New().String(),
		FilamentID:   req.FilamentID,
		PrinterID:    req.PrinterID,
		AmountGrams:  req.AmountGrams,
		AmountMeters: req.AmountMeters,
		Kind:         inventory.Kind(req.Kind),
		PrintName:    req.PrintName,
		Notes:        req.Notes,
	})
}

// CreateConsumptionFromMetadata records usage reported by slicer metadata.
// Without a filament_id the active filament matching material and color
// with the most stock is charged.
func (h *Handler) CreateConsumptionFromMetadata(c *gin.Context) {
	var req models.MetadataUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	filamentID := req.FilamentID
	if filamentID == "" {
		id, ok := h.resolveFilament(req.MaterialType, req.Color)
		if !ok {
			h.respondError(c, eris.Wrapf(inventory.ErrNotFound,
				"no active filament for %s %s", req.MaterialType, req.Color))
			return
		}
		filamentID = id
	}

	entry := inventory.NewEntry{
		ID:          uuid.New().String(),
		FilamentID:  filamentID,
		PrinterID:   req.PrinterID,
		AmountGrams: req.Grams(),
		Kind:        inventory.Kind(req.Kind),
		PrintName:   req.PrintName,
	}
	if req.UsedFilamentM != nil {
		m := *req.UsedFilamentM
		entry.AmountMeters = &m
	}

	zap.L().Debug("metadata usage resolved",
		zap.String("filament_id", filamentID),
		zap.String("grams", entry.AmountGrams.String()))
	h.createEntry(c, entry)
}

func (h *Handler) createEntry(c *gin.Context, entry inventory.NewEntry) {
	res, err := h.Node.Apply(&models.Command{
		Type:     models.AddConsumption,
		NewEntry: &entry,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetConsumption lists entries, optionally by filament_id and kind
func (h *Handler) GetConsumption(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && !models.IsValidConsumptionKind(kind) {
		h.respondError(c, eris.Wrapf(inventory.ErrInvalidInput, "invalid kind %q", kind))
		return
	}
	entries := h.Node.GetFSM().GetConsumption(c.Query("filament_id"), inventory.Kind(kind))
	c.JSON(http.StatusOK, entries)
}

// GetConsumptionEntry returns an entry by ID
func (h *Handler) GetConsumptionEntry(c *gin.Context) {
	id := c.Param("id")
	entry, ok := h.Node.GetFSM().GetConsumptionEntry(id)
	if !ok {
		h.respondError(c, eris.Wrapf(inventory.ErrNotFound, "consumption entry %s", id))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UpdateConsumption edits an entry and moves the weight difference
func (h *Handler) UpdateConsumption(c *gin.Context) {
	var req models.UpdateConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	patch := req.Patch()
	res, err := h.Node.Apply(&models.Command{
		Type:       models.UpdateConsumption,
		EntryID:    c.Param("id"),
		EntryPatch: &patch,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteConsumption removes an entry and puts its weight back on a spool
func (h *Handler) DeleteConsumption(c *gin.Context) {
	if _, err := h.Node.Apply(&models.Command{
		Type:    models.DeleteConsumption,
		EntryID: c.Param("id"),
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
