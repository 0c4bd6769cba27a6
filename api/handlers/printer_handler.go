package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/devadigapratham/spoolkeeper/api/models"
	"github.com/devadigapratham/spoolkeeper/inventory"
)

// CreatePrinter registers a printer that consumption entries can name
func (h *Handler) CreatePrinter(c *gin.Context) {
	var req models.Printer
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	printer := models.Printer{
		ID:      strings.TrimSpace(req.ID),
		Company: strings.TrimSpace(req.Company),
		Model:   strings.TrimSpace(req.Model),
	}
	if printer.Company == "" || printer.Model == "" {
		h.respondError(c, eris.Wrap(inventory.ErrInvalidInput, "company and model are required"))
		return
	}
	if printer.ID == "" {
		printer.ID = uuid.New().String()
	}

	res, err := h.Node.Apply(&models.Command{
		Type:    models.AddPrinter,
		Printer: &printer,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetPrinters lists printers by ID
func (h *Handler) GetPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, h.Node.GetFSM().GetPrinters())
}

// GetPrinter returns a printer by ID
func (h *Handler) GetPrinter(c *gin.Context) {
	id := c.Param("id")
	printer, ok := h.Node.GetFSM().GetPrinter(id)
	if !ok {
		h.respondError(c, eris.Wrapf(inventory.ErrNotFound, "printer %s", id))
		return
	}
	c.JSON(http.StatusOK, printer)
}
