// api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/devadigapratham/spoolkeeper/api/handlers"
	"github.com/devadigapratham/spoolkeeper/raft"
)

// SetupRouter sets up the API routes
func SetupRouter(node *raft.Node, store *raft.Store, transport *raft.Transport, corsOrigins []string) *gin.Engine {
	var router *gin.Engine
	if gin.Mode() == gin.DebugMode {
		router = gin.Default()
	} else {
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.Use(corsMiddleware(corsOrigins))

	// Create the handler
	handler := handlers.NewHandler(node, store)

	// API group
	api := router.Group("/api/v1")
	api.Use(handler.RaftLeaderMiddleware())
	{
		// Printer endpoints
		api.POST("/printers", handler.CreatePrinter)
		api.GET("/printers", handler.GetPrinters)
		api.GET("/printers/:id", handler.GetPrinter)

		// Filament endpoints
		api.POST("/filaments", handler.CreateFilament)
		api.GET("/filaments", handler.GetFilaments)
		api.GET("/filaments/:id", handler.GetFilament)
		api.PATCH("/filaments/:id", handler.UpdateFilament)
		api.DELETE("/filaments/:id", handler.DeleteFilament)
		api.POST("/filaments/:id/archive", handler.ArchiveFilament)
		api.POST("/filaments/:id/restock", handler.RestockFilament)
		api.GET("/filaments/:id/spools", handler.GetSpools)
		api.POST("/filaments/:id/spools", handler.CreateSpool)

		// Spool endpoints
		api.GET("/spools/:id", handler.GetSpool)
		api.PATCH("/spools/:id", handler.UpdateSpool)
		api.POST("/spools/:id/archive", handler.ArchiveSpool)

		// Consumption endpoints
		api.POST("/consumption", handler.CreateConsumption)
		api.POST("/consumption/metadata", handler.CreateConsumptionFromMetadata)
		api.GET("/consumption", handler.GetConsumption)
		api.GET("/consumption/:id", handler.GetConsumptionEntry)
		api.PATCH("/consumption/:id", handler.UpdateConsumption)
		api.DELETE("/consumption/:id", handler.DeleteConsumption)

		// Export endpoints
		api.POST("/exports", handler.CreateExport)
		api.GET("/exports", handler.GetExports)
		api.GET("/exports/latest", handler.GetLatestExport)
	}

	// Cluster membership, served by the Raft transport
	if transport != nil {
		raftHandler := gin.WrapH(http.StripPrefix("/raft", transport.RaftHandler()))
		router.Any("/raft/*path", raftHandler)
	}

	// Add a raft status endpoint
	router.GET("/status", handler.Status)

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
