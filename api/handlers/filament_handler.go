package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devadigapratham/spoolkeeper/api/models"
	"github.com/devadigapratham/spoolkeeper/inventory"
)

// CreateFilament creates a new filament, optionally with initial spools
func (h *Handler) CreateFilament(c *gin.Context) {
	var req models.CreateFilamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	nf := inventory.NewFilament{
		ID:           uuid.New().String(),
		Material:     strings.ToUpper(strings.TrimSpace(req.Material)),
		Color:        req.Color,
		Manufacturer: req.Manufacturer,
		Spools:       req.Spools,
		EmptyWeight:  req.EmptyWeight,
	}
	if req.SpoolWeight != nil {
		nf.SpoolWeight = *req.SpoolWeight
	}

	res, err := h.Node.Apply(&models.Command{
		Type:        models.AddFilament,
		NewFilament: &nf,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// GetFilaments returns all filaments; archived ones only with ?archived=true
func (h *Handler) GetFilaments(c *gin.Context) {
	filaments := h.Node.GetFSM().GetFilaments(includeArchived(c))
	c.JSON(http.StatusOK, filaments)
}

// GetFilament returns one filament with its spools and remaining weights
func (h *Handler) GetFilament(c *gin.Context) {
	view, err := h.Node.GetFSM().GetFilament(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateFilament changes a filament's descriptive fields
func (h *Handler) UpdateFilament(c *gin.Context) {
	var req models.UpdateFilamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.Node.Apply(&models.Command{
		Type:       models.UpdateFilament,
		FilamentID: c.Param("id"),
		FilamentPatch: &inventory.FilamentPatch{
			Material:     req.Material,
			Color:        req.Color,
			Manufacturer: req.Manufacturer,
		},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ArchiveFilament sets the archived flag; archiving also archives every spool
func (h *Handler) ArchiveFilament(c *gin.Context) {
	var req models.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Node.Apply(&models.Command{
		Type:       models.ArchiveFilament,
		FilamentID: c.Param("id"),
		Archived:   req.Archived,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RestockFilament adds identical new spools to a filament
func (h *Handler) RestockFilament(c *gin.Context) {
	var req models.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.Node.Apply(&models.Command{
		Type:       models.RestockFilament,
		FilamentID: c.Param("id"),
		Restock: &inventory.Restock{
			Quantity:       req.Quantity,
			WeightPerSpool: req.WeightPerSpool,
			EmptyWeight:    req.EmptyWeight,
		},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	spools, _ := res.([]inventory.Spool)
	views := make([]inventory.SpoolView, 0, len(spools))
	for _, sp := range spools {
		views = append(views, inventory.NewSpoolView(sp))
	}
	c.JSON(http.StatusCreated, views)
}

// DeleteFilament removes a filament with its spools and consumption
func (h *Handler) DeleteFilament(c *gin.Context) {
	if _, err := h.Node.Apply(&models.Command{
		Type:       models.DeleteFilament,
		FilamentID: c.Param("id"),
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// resolveFilament finds the active filament matching material and color
// with the most stock left
func (h *Handler) resolveFilament(material, color string) (string, bool) {
	var (
		id   string
		best decimal.Decimal
	)
	for _, view := range h.Node.GetFSM().GetFilaments(false) {
		if !strings.EqualFold(view.Material, strings.TrimSpace(material)) {
			continue
		}
		if color != "" && !strings.EqualFold(view.Color, strings.TrimSpace(color)) {
			continue
		}
		if id == "" || view.GrossRemaining.GreaterThan(best) {
			id, best = view.ID, view.GrossRemaining
		}
	}
	return id, id != ""
}
