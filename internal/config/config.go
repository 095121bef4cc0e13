// Package config loads node configuration from flags and environment
// variables (no configuration file is read), the way the pack's
// viper-plus-pflag "LoadConfig" pattern does it: bind pflags to a fresh
// viper instance, never the package-global one, so loading stays
// deterministic and side-effect free.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"okkv/internal/cluster"
)

// Config is one node's fully resolved configuration.
type Config struct {
	NodeID      string
	Addr        string
	DataDir     string
	Nodes       []string
	PeerTimeout time.Duration
	DialTimeout time.Duration
}

// Load parses args (typically os.Args[1:]) against flags, environment
// variables prefixed OKKV_, and returns the resolved Config.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("node", pflag.ContinueOnError)
	fs.String("node-id", "node1", "this node's identifier")
	fs.String("addr", ":8080", "listen address (host:port)")
	fs.String("data-dir", "/tmp/okkv", "directory for the embedded storage engine")
	fs.String("nodes", "", "comma-separated ordered list of peer HTTP origins, including self")
	fs.Duration("peer-timeout", 5*time.Second, "per-peer sub-request deadline")
	fs.Duration("dial-timeout", 100*time.Millisecond, "peer transport connect timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("okkv")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("config: bind flags: %w", err)
	}

	nodesRaw := v.GetString("nodes")
	var nodes []string
	if nodesRaw != "" {
		for _, n := range strings.Split(nodesRaw, ",") {
			n = strings.TrimSpace(n)
			if n != "" {
				nodes = append(nodes, n)
			}
		}
	}

	cfg := Config{
		NodeID:      v.GetString("node-id"),
		Addr:        v.GetString("addr"),
		DataDir:     v.GetString("data-dir"),
		Nodes:       nodes,
		PeerTimeout: v.GetDuration("peer-timeout"),
		DialTimeout: v.GetDuration("dial-timeout"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("config: node-id must not be empty")
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("config: nodes must not be empty")
	}
	if c.PeerTimeout <= 0 {
		return fmt.Errorf("config: peer-timeout must be positive")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("config: dial-timeout must be positive")
	}
	return nil
}

// Topology builds the cluster topology this config describes. Self is the
// entry of c.Nodes equal to c.NodeID or, failing that, the first one ending
// in c.Addr (see selfOrigin); it must appear exactly once in c.Nodes.
func (c Config) Topology() (*cluster.Topology, error) {
	self, err := c.selfOrigin()
	if err != nil {
		return nil, err
	}
	return cluster.NewTopology(c.Nodes, self)
}

// selfOrigin finds the entry of c.Nodes that names this node: either an
// exact match on c.NodeID (nodes may be given as bare ids in tests) or the
// one whose host:port suffix matches c.Addr.
func (c Config) selfOrigin() (string, error) {
	for _, n := range c.Nodes {
		if n == c.NodeID {
			return n, nil
		}
	}
	for _, n := range c.Nodes {
		if strings.HasSuffix(n, c.Addr) {
			return n, nil
		}
	}
	return "", fmt.Errorf("config: node-id %q / addr %q not found in nodes %v", c.NodeID, c.Addr, c.Nodes)
}
