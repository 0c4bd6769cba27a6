// api/models/printer.go
package models

// Printer represents a 3D printer that consumption can be attributed to
type Printer struct {
	ID      string `json:"id"`
	Company string `json:"company" binding:"required"`
	Model   string `json:"model" binding:"required"`
}
