// Package cluster holds the two pieces of cluster state the coordinator
// needs that are neither the storage engine nor the merge algebra: the
// static topology (who the peers are, and which one is us) and the
// transport used to talk to them.
//
// Topology never changes after construction: membership change is out of
// scope, so there is nothing here to protect with a mutex.
package cluster

import "fmt"

// Topology is the immutable, identically-ordered list of peer endpoints
// shared by every node, plus this node's own identifier.
type Topology struct {
	Nodes []string // ordered, origin URLs (scheme://host:port)
	Self  string
}

// NewTopology validates that self appears exactly once in nodes and
// returns an immutable Topology over a private copy of the slice.
func NewTopology(nodes []string, self string) (*Topology, error) {
	count := 0
	for _, n := range nodes {
		if n == self {
			count++
		}
	}
	switch count {
	case 0:
		return nil, fmt.Errorf("cluster: self %q is not present in nodes %v", self, nodes)
	case 1:
	default:
		return nil, fmt.Errorf("cluster: self %q appears %d times in nodes %v", self, count, nodes)
	}

	cp := make([]string, len(nodes))
	copy(cp, nodes)
	return &Topology{Nodes: cp, Self: self}, nil
}

// N returns the cluster size.
func (t *Topology) N() int {
	return len(t.Nodes)
}

// Peers returns Nodes without Self.
func (t *Topology) Peers() []string {
	out := make([]string, 0, len(t.Nodes)-1)
	for _, n := range t.Nodes {
		if n != t.Self {
			out = append(out, n)
		}
	}
	return out
}
