package raft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Transport provides the HTTP side of cluster membership
type Transport struct {
	node   *Node
	client *http.Client
}

// NewTransport creates a new Transport
func NewTransport(node *Node) *Transport {
	return &Transport{
		node:   node,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type joinRequest struct {
	NodeID   string `json:"node_id"`
	NodeAddr string `json:"node_addr"`
}

type leaveRequest struct {
	NodeID string `json:"node_id"`
}

// JoinCluster asks the node serving HTTP at joinAddr to add this node
func (t *Transport) JoinCluster(joinAddr, nodeID, raftAddr string) error {
	body, err := json.Marshal(joinRequest{NodeID: nodeID, NodeAddr: raftAddr})
	if err != nil {
		return err
	}
	return t.post(joinAddr, "/raft/join", body)
}

// LeaveCluster asks the node serving HTTP at addr to remove nodeID
func (t *Transport) LeaveCluster(addr, nodeID string) error {
	body, err := json.Marshal(leaveRequest{NodeID: nodeID})
	if err != nil {
		return err
	}
	return t.post(addr, "/raft/leave", body)
}

func (t *Transport) post(addr, path string, body []byte) error {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "post %s%s", addr, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("received non-success response from %s%s: %d", addr, path, resp.StatusCode)
	}
	return nil
}

// RaftHandler returns an HTTP handler for membership changes. It expects
// to be mounted with the /raft prefix stripped.
func (t *Transport) RaftHandler() http.Handler {
	mux := http.NewServeMux()

	// Handler for joining the cluster
	mux.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Only the leader can add nodes
		if !t.node.Leader() {
			http.Error(w, "Not the leader", http.StatusConflict)
			return
		}

		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode request: %v", err), http.StatusBadRequest)
			return
		}
		if req.NodeID == "" || req.NodeAddr == "" {
			http.Error(w, "node_id and node_addr are required", http.StatusBadRequest)
			return
		}

		if err := t.node.AddVoter(req.NodeID, req.NodeAddr); err != nil {
			http.Error(w, fmt.Sprintf("Failed to add node: %v", err), http.StatusInternalServerError)
			return
		}
		zap.L().Info("node joined", zap.String("node_id", req.NodeID), zap.String("addr", req.NodeAddr))

		w.WriteHeader(http.StatusOK)
	})

	// Handler for leaving the cluster
	mux.HandleFunc("/leave", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Only the leader can remove nodes
		if !t.node.Leader() {
			http.Error(w, "Not the leader", http.StatusConflict)
			return
		}

		var req leaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode request: %v", err), http.StatusBadRequest)
			return
		}
		if req.NodeID == "" {
			http.Error(w, "node_id is required", http.StatusBadRequest)
			return
		}

		if err := t.node.RemoveServer(req.NodeID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to remove node: %v", err), http.StatusInternalServerError)
			return
		}
		zap.L().Info("node left", zap.String("node_id", req.NodeID))

		w.WriteHeader(http.StatusOK)
	})

	return mux
}
