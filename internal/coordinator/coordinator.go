// Package coordinator implements the per-request fan-out described in the
// storage node's replication design: turn one parsed entity request into
// one response, honouring a replication factor and the inter-coordinator
// proxy bit.
//
// Every sub-request — local or remote — is started before any of them is
// awaited, and none is cancelled once the ack threshold is satisfied; their
// results are simply discarded. Each goroutine writes to its own slot in a
// pre-sized slice, so there is nothing to lock: the join is an
// errgroup.Group used purely for its Go/Wait bookkeeping, not for its
// first-error cancellation (sub-request failures are data, not faults).
package coordinator

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"okkv/internal/cluster"
	"okkv/internal/placement"
	"okkv/internal/record"
	"okkv/internal/storage"
)

// Method is the entity operation a Request carries out.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// Request is one parsed entity operation, ready to dispatch.
type Request struct {
	Method Method
	Key    []byte
	Value  []byte // PUT only
	RF     placement.RF
	Proxy  bool // set when the caller sent X-OK-Proxy: True
}

// Response is what the coordinator hands back to the dispatcher.
type Response struct {
	Status int
	Body   []byte
}

// Coordinator owns the pieces needed to answer one node's share of entity
// traffic: where the other replicas are, how to reach them, and the local
// engine.
type Coordinator struct {
	topology  *cluster.Topology
	transport *cluster.PeerTransport
	store     *storage.TimestampedStore
	log       *logrus.Entry
}

// New builds a Coordinator over topology, using transport to reach peers
// and store for the local replica.
func New(topology *cluster.Topology, transport *cluster.PeerTransport, store *storage.TimestampedStore, log *logrus.Entry) *Coordinator {
	return &Coordinator{topology: topology, transport: transport, store: store, log: log}
}

// Handle dispatches req to the replica list implied by its proxy flag and
// key, tallies the sub-responses, and returns the merged result.
//
// A proxied request's replica list is always just [self] (§4.4), so its RF
// is forced to (1,1) regardless of whatever "replicas" query parameter
// happened to be on the wire: there is only ever one sub-request to wait
// on, and the upstream coordinator is the one enforcing the real quorum.
func (c *Coordinator) Handle(ctx context.Context, req Request) Response {
	if req.Proxy {
		req.RF = placement.RF{Ack: 1, From: 1}
	}
	switch req.Method {
	case MethodGet:
		return c.handleGet(ctx, req)
	case MethodPut:
		return c.handlePut(ctx, req)
	case MethodDelete:
		return c.handleDelete(ctx, req)
	default:
		return Response{Status: http.StatusMethodNotAllowed}
	}
}

// replicaList derives the replica set: a proxied request only ever asks
// this node for its own local opinion; otherwise it is the key's placement
// over the cluster, sized to the RF's "from" half.
func (c *Coordinator) replicaList(req Request) []string {
	if req.Proxy {
		return []string{c.topology.Self}
	}
	return placement.Placement(c.topology.Nodes, req.Key, req.RF.From)
}

func entityPath(key []byte) string {
	return "/v0/entity?id=" + url.QueryEscape(string(key))
}

// subOutcome is one replica's contribution to a GET tally: whether it
// counts as an ack, and — independently — whether it produced a record
// worth feeding into the merge.
type subOutcome struct {
	acked  bool
	rec    record.Record
	hasRec bool
}

func (c *Coordinator) handleGet(ctx context.Context, req Request) Response {
	replicas := c.replicaList(req)
	if len(replicas) == 0 {
		return Response{Status: http.StatusNotFound}
	}

	outcomes := make([]subOutcome, len(replicas))
	var g errgroup.Group
	for i, r := range replicas {
		i, r := i, r
		g.Go(func() error {
			if r == c.topology.Self {
				outcomes[i] = c.localGet(req.Key)
			} else {
				outcomes[i] = c.remoteGet(ctx, r, req.Key)
			}
			return nil
		})
	}
	_ = g.Wait()

	ackCount := 0
	records := make([]record.Record, 0, len(outcomes))
	for _, o := range outcomes {
		if o.acked {
			ackCount++
		}
		if o.hasRec {
			records = append(records, o.rec)
		}
	}
	if ackCount < req.RF.Ack {
		return Response{Status: http.StatusGatewayTimeout}
	}

	merged := record.Merge(records)
	switch merged.Tag {
	case record.Value:
		if req.Proxy {
			return Response{Status: http.StatusOK, Body: record.Encode(merged)}
		}
		return Response{Status: http.StatusOK, Body: merged.Value}
	case record.Deleted:
		if req.Proxy {
			return Response{Status: http.StatusNotFound, Body: record.Encode(merged)}
		}
		return Response{Status: http.StatusNotFound}
	default:
		return Response{Status: http.StatusNotFound}
	}
}

func (c *Coordinator) localGet(key []byte) subOutcome {
	rec, err := c.store.GetTS(key)
	if err != nil {
		c.log.WithError(err).Warn("coordinator: local get failed")
		return subOutcome{}
	}
	return subOutcome{acked: true, rec: rec, hasRec: true}
}

// remoteGet asks a peer for its local opinion of key and classifies the
// reply. A 5xx or transport failure never counts as an ack — the reference
// source sometimes credits one anyway, which this design explicitly does
// not replicate.
func (c *Coordinator) remoteGet(ctx context.Context, node string, key []byte) subOutcome {
	resp := c.transport.Do(ctx, node, http.MethodGet, entityPath(key), nil)
	if resp.Err != nil {
		return subOutcome{}
	}

	switch {
	case resp.StatusCode == http.StatusOK && len(resp.Body) > 0:
		rec, err := record.Decode(resp.Body)
		if err != nil {
			c.log.WithError(err).WithField("peer", node).Warn("coordinator: malformed record from peer")
			return subOutcome{acked: true}
		}
		return subOutcome{acked: true, rec: rec, hasRec: true}
	case resp.StatusCode == http.StatusNotFound && len(resp.Body) == 0:
		return subOutcome{acked: true, rec: record.Record{Tag: record.Absent, Timestamp: -1}, hasRec: true}
	case resp.StatusCode == http.StatusNotFound:
		rec, err := record.Decode(resp.Body)
		if err != nil {
			c.log.WithError(err).WithField("peer", node).Warn("coordinator: malformed tombstone from peer")
			return subOutcome{acked: true}
		}
		return subOutcome{acked: true, rec: rec, hasRec: true}
	default:
		return subOutcome{}
	}
}

func (c *Coordinator) handlePut(ctx context.Context, req Request) Response {
	replicas := c.replicaList(req)
	if len(replicas) == 0 {
		return Response{Status: http.StatusCreated}
	}

	acks := make([]bool, len(replicas))
	var g errgroup.Group
	for i, r := range replicas {
		i, r := i, r
		g.Go(func() error {
			if r == c.topology.Self {
				acks[i] = c.localPut(req.Key, req.Value)
			} else {
				acks[i] = c.remotePut(ctx, r, req.Key, req.Value)
			}
			return nil
		})
	}
	_ = g.Wait()

	if countTrue(acks) >= req.RF.Ack {
		return Response{Status: http.StatusCreated}
	}
	return Response{Status: http.StatusGatewayTimeout}
}

func (c *Coordinator) localPut(key, value []byte) bool {
	ts := time.Now().UnixMilli()
	if err := c.store.PutTS(key, value, ts); err != nil {
		c.log.WithError(err).Warn("coordinator: local put failed")
		return false
	}
	return true
}

func (c *Coordinator) remotePut(ctx context.Context, node string, key, value []byte) bool {
	resp := c.transport.Do(ctx, node, http.MethodPut, entityPath(key), value)
	if resp.Err != nil {
		return false
	}
	return resp.StatusCode == http.StatusCreated
}

func (c *Coordinator) handleDelete(ctx context.Context, req Request) Response {
	replicas := c.replicaList(req)
	if len(replicas) == 0 {
		return Response{Status: http.StatusAccepted}
	}

	acks := make([]bool, len(replicas))
	var g errgroup.Group
	for i, r := range replicas {
		i, r := i, r
		g.Go(func() error {
			if r == c.topology.Self {
				acks[i] = c.localDelete(req.Key)
			} else {
				acks[i] = c.remoteDelete(ctx, r, req.Key)
			}
			return nil
		})
	}
	_ = g.Wait()

	if countTrue(acks) >= req.RF.Ack {
		return Response{Status: http.StatusAccepted}
	}
	return Response{Status: http.StatusGatewayTimeout}
}

func (c *Coordinator) localDelete(key []byte) bool {
	ts := time.Now().UnixMilli()
	if err := c.store.DeleteTS(key, ts); err != nil {
		c.log.WithError(err).Warn("coordinator: local delete failed")
		return false
	}
	return true
}

func (c *Coordinator) remoteDelete(ctx context.Context, node string, key []byte) bool {
	resp := c.transport.Do(ctx, node, http.MethodDelete, entityPath(key), nil)
	if resp.Err != nil {
		return false
	}
	return resp.StatusCode == http.StatusAccepted
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
