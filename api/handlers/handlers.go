package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/devadigapratham/spoolkeeper/inventory"
	"github.com/devadigapratham/spoolkeeper/raft"
)

// Handler represents the API handlers
type Handler struct {
	Node  *raft.Node
	Store *raft.Store
}

// NewHandler creates a new Handler
func NewHandler(node *raft.Node, store *raft.Store) *Handler {
	return &Handler{
		Node:  node,
		Store: store,
	}
}

// RaftLeaderMiddleware rejects writes on followers and points the caller
// at the leader
func (h *Handler) RaftLeaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to write operations
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			if !h.Node.Leader() {
				h.notLeader(c)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// Status reports this node's view of the cluster
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"node_id":     h.Node.ID(),
		"is_leader":   h.Node.Leader(),
		"leader_addr": h.Node.LeaderAddress(),
		"state":       h.Node.State().String(),
		"allocator":   h.Node.GetFSM().AllocatorName(),
	})
}

func (h *Handler) notLeader(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{
		"error":  "not the leader",
		"leader": h.Node.LeaderAddress(),
	})
}

// respondError maps engine errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case eris.Is(err, raft.ErrNotLeader):
		h.notLeader(c)
	case inventory.IsNotFound(err), eris.Is(err, raft.ErrNoExport):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case inventory.IsInsufficientStock(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case inventory.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// includeArchived reads the ?archived= query flag
func includeArchived(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("archived", "false"))
	return err == nil && v
}
