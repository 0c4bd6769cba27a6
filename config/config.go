package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/devadigapratham/spoolkeeper/inventory"
)

// Config represents the application configuration
type Config struct {
	Node      NodeConfig      `mapstructure:"node"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Log       LogConfig       `mapstructure:"log"`
}

// NodeConfig configures this node's place in the Raft cluster
type NodeConfig struct {
	ID           string        `mapstructure:"id"`
	RaftAddr     string        `mapstructure:"raft_addr"`
	RaftDir      string        `mapstructure:"raft_dir"`
	Bootstrap    bool          `mapstructure:"bootstrap"`
	Join         string        `mapstructure:"join"`
	Peers        []string      `mapstructure:"peers"`
	ApplyTimeout time.Duration `mapstructure:"apply_timeout"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// InventoryConfig selects engine policies
type InventoryConfig struct {
	Allocator string `mapstructure:"allocator"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command line flags to config keys
var flagKeys = map[string]string{
	"id":            "node.id",
	"raft-addr":     "node.raft_addr",
	"raft-dir":      "node.raft_dir",
	"bootstrap":     "node.bootstrap",
	"join":          "node.join",
	"peers":         "node.peers",
	"apply-timeout": "node.apply_timeout",
	"http-addr":     "http.addr",
	"cors-origins":  "http.cors_origins",
	"allocator":     "inventory.allocator",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// RegisterFlags adds the server flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("id", "", "Node ID (required)")
	fs.String("raft-addr", "", "Raft transport address (required)")
	fs.String("raft-dir", "", "Raft storage directory (required)")
	fs.Bool("bootstrap", false, "Bootstrap the cluster")
	fs.String("join", "", "HTTP address of an existing node to join")
	fs.StringSlice("peers", nil, "Comma-separated list of peer Raft addresses")
	fs.Duration("apply-timeout", 5*time.Second, "Timeout for a command to commit")
	fs.String("http-addr", "", "HTTP API address (required)")
	fs.StringSlice("cors-origins", nil, "Allowed CORS origins (default all)")
	fs.String("allocator", inventory.AllocatorRecency, "Deduction policy: recency or fifo")
	fs.String("log-level", "info", "Log level")
	fs.String("log-format", "json", "Log format: json or console")
}

// Load reads configuration from defaults, an optional config.yaml, the
// SPOOLKEEPER_* environment and, when fs is not nil, command line flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPOOLKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("node.id", "")
	v.SetDefault("node.raft_addr", "")
	v.SetDefault("node.raft_dir", "")
	v.SetDefault("node.bootstrap", false)
	v.SetDefault("node.join", "")
	v.SetDefault("node.peers", []string{})
	v.SetDefault("node.apply_timeout", 5*time.Second)
	v.SetDefault("http.addr", "")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("inventory.allocator", inventory.AllocatorRecency)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Flags override everything, but only when set
	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, eris.Wrapf(err, "config: bind flag %s", name)
			}
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a node cannot start without
func (c *Config) Validate() error {
	switch {
	case c.Node.ID == "":
		return eris.New("config: node.id is required")
	case c.Node.RaftAddr == "":
		return eris.New("config: node.raft_addr is required")
	case c.Node.RaftDir == "":
		return eris.New("config: node.raft_dir is required")
	case c.HTTP.Addr == "":
		return eris.New("config: http.addr is required")
	}
	if _, err := inventory.NewAllocator(c.Inventory.Allocator); err != nil {
		return eris.Wrap(err, "config: inventory.allocator")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
