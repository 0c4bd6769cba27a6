package raft

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/devadigapratham/spoolkeeper/api/models"
	"github.com/devadigapratham/spoolkeeper/inventory"
)

// ErrNotLeader is returned when a write reaches a follower
var ErrNotLeader = eris.New("not the leader")

// Node represents a node in the Raft cluster
type Node struct {
	id           string
	raft         *raft.Raft
	fsm          *FSM
	transport    raft.Transport
	closers      []io.Closer
	applyTimeout time.Duration
	now          func() time.Time
}

// Config represents the configuration for a Raft node
type Config struct {
	NodeID       string
	RaftAddr     string
	RaftDir      string
	Bootstrap    bool
	Peers        []string
	Allocator    inventory.Allocator
	ApplyTimeout time.Duration
	LogOutput    io.Writer
}

func (c *Config) applyTimeout() time.Duration {
	if c.ApplyTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ApplyTimeout
}

func (c *Config) logOutput() io.Writer {
	if c.LogOutput == nil {
		return os.Stderr
	}
	return c.LogOutput
}

// NewNode creates a new Raft node backed by BoltDB and a TCP transport
func NewNode(config *Config) (*Node, error) {
	// Create the FSM
	fsm := NewFSM(config.Allocator)

	// Create Raft configuration
	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(config.NodeID)
	raftConfig.SnapshotInterval = 20 * time.Second
	raftConfig.SnapshotThreshold = 1024
	raftConfig.LogOutput = config.logOutput()

	if err := os.MkdirAll(config.RaftDir, 0755); err != nil {
		return nil, eris.Wrap(err, "failed to create raft directory")
	}

	// Create the BoltDB store for logs
	logStorePath := filepath.Join(config.RaftDir, "raft-log.db")
	logStore, err := raftboltdb.NewBoltStore(logStorePath)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create BoltDB log store")
	}

	// Create the stable store for data
	stableStorePath := filepath.Join(config.RaftDir, "raft-stable.db")
	stableStore, err := raftboltdb.NewBoltStore(stableStorePath)
	if err != nil {
		logStore.Close()
		return nil, eris.Wrap(err, "failed to create BoltDB stable store")
	}

	// Create the snapshot store
	snapshotStore, err := raft.NewFileSnapshotStore(config.RaftDir, 3, config.logOutput())
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, eris.Wrap(err, "failed to create snapshot store")
	}

	// Setup TCP transport
	addr, err := net.ResolveTCPAddr("tcp", config.RaftAddr)
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, eris.Wrap(err, "failed to resolve TCP address")
	}
	transport, err := raft.NewTCPTransport(config.RaftAddr, addr, 3, 10*time.Second, config.logOutput())
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, eris.Wrap(err, "failed to create TCP transport")
	}

	// Create the Raft instance
	r, err := raft.NewRaft(raftConfig, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		transport.Close()
		logStore.Close()
		stableStore.Close()
		return nil, eris.Wrap(err, "failed to create Raft instance")
	}

	// Bootstrap if needed
	if config.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raft.ServerID(config.NodeID),
					Address: transport.LocalAddr(),
				},
			},
		}

		// Add other peers
		for _, peer := range config.Peers {
			if peer != config.RaftAddr {
				configuration.Servers = append(configuration.Servers, raft.Server{
					ID:      raft.ServerID(fmt.Sprintf("node-%s", peer)),
					Address: raft.ServerAddress(peer),
				})
			}
		}

		// Bootstrap the cluster
		f := r.BootstrapCluster(configuration)
		if err := f.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, eris.Wrap(err, "failed to bootstrap cluster")
		}
	}

	return &Node{
		id:           config.NodeID,
		raft:         r,
		fsm:          fsm,
		transport:    transport,
		closers:      []io.Closer{transport, logStore, stableStore},
		applyTimeout: config.applyTimeout(),
		now:          time.Now,
	}, nil
}

// NewInmemNode creates a single-voter node with in-memory storage and
// transport. It bootstraps itself and waits until it leads.
func NewInmemNode(nodeID string, allocator inventory.Allocator) (*Node, error) {
	fsm := NewFSM(allocator)

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(nodeID)
	raftConfig.HeartbeatTimeout = 50 * time.Millisecond
	raftConfig.ElectionTimeout = 50 * time.Millisecond
	raftConfig.LeaderLeaseTimeout = 50 * time.Millisecond
	raftConfig.CommitTimeout = 5 * time.Millisecond
	raftConfig.LogOutput = io.Discard

	store := raft.NewInmemStore()
	snapshots := raft.NewInmemSnapshotStore()
	addr, transport := raft.NewInmemTransport("")

	r, err := raft.NewRaft(raftConfig, fsm, store, store, snapshots, transport)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create Raft instance")
	}
	f := r.BootstrapCluster(raft.Configuration{
		Servers: []raft.Server{{ID: raftConfig.LocalID, Address: addr}},
	})
	if err := f.Error(); err != nil {
		return nil, eris.Wrap(err, "failed to bootstrap cluster")
	}

	n := &Node{
		id:           nodeID,
		raft:         r,
		fsm:          fsm,
		transport:    transport,
		applyTimeout: 5 * time.Second,
		now:          time.Now,
	}
	if err := n.WaitForLeader(5 * time.Second); err != nil {
		n.Shutdown()
		return nil, err
	}
	return n, nil
}

// WaitForLeader blocks until this node leads or timeout passes
func (n *Node) WaitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n.Leader() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return eris.New("timed out waiting for leadership")
}

// Apply stamps cmd, appends it to the Raft log and returns the FSM's result
func (n *Node) Apply(cmd *models.Command) (interface{}, error) {
	if !n.Leader() {
		return nil, ErrNotLeader
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = n.now().UTC()
	}
	data, err := cmd.Marshal()
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal command")
	}

	// Apply the command to the Raft log
	future := n.raft.Apply(data, n.applyTimeout)
	if err := future.Error(); err != nil {
		if err == raft.ErrNotLeader || err == raft.ErrLeadershipLost {
			return nil, ErrNotLeader
		}
		return nil, eris.Wrap(err, "failed to apply command to Raft log")
	}

	// Check for application error
	if appErr, ok := future.Response().(error); ok && appErr != nil {
		return nil, appErr
	}

	zap.L().Debug("command applied",
		zap.String("type", string(cmd.Type)),
		zap.Uint64("index", future.Index()))
	return future.Response(), nil
}

// Snapshot forces a snapshot of the FSM
func (n *Node) Snapshot() error {
	return n.raft.Snapshot().Error()
}

// GetFSM returns the FSM
func (n *Node) GetFSM() *FSM {
	return n.fsm
}

// ID returns the node's Raft server ID
func (n *Node) ID() string {
	return n.id
}

// Leader returns true if this node is the leader
func (n *Node) Leader() bool {
	return n.raft.State() == raft.Leader
}

// LeaderAddress returns the address of the current leader
func (n *Node) LeaderAddress() string {
	addr, _ := n.raft.LeaderWithID()
	return string(addr)
}

// State returns the current state of the Raft node
func (n *Node) State() raft.RaftState {
	return n.raft.State()
}

// AddVoter adds a server to the cluster
func (n *Node) AddVoter(id, addr string) error {
	return n.raft.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, 0).Error()
}

// RemoveServer removes a server from the cluster
func (n *Node) RemoveServer(id string) error {
	return n.raft.RemoveServer(raft.ServerID(id), 0, 0).Error()
}

// Shutdown stops the Raft node
func (n *Node) Shutdown() error {
	var err error
	if n.raft != nil {
		err = n.raft.Shutdown().Error()
	}
	for _, c := range n.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
