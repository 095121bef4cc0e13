package cluster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ProxyHeader marks a request as inter-coordinator traffic: the receiver
// answers using itself as the sole replica, and GET responses carry the
// encoded timestamped record instead of the raw value.
const ProxyHeader = "X-OK-Proxy"

// PeerResponse is what a sub-request to a peer resolves to. Err is set
// only for transport-level failures (dial/timeout/malformed response); a
// non-2xx status from a peer that did answer is not an error here — the
// coordinator interprets the status itself.
type PeerResponse struct {
	StatusCode int
	Body       []byte
	Err        error
}

// PeerTransport is the asynchronous HTTP client the coordinator uses to
// reach other nodes: one http.Client per remote endpoint, safe for
// concurrent use, each bounded by a short connect timeout and a per-request
// deadline so one wedged peer can never stall the others.
type PeerTransport struct {
	clients     map[string]*http.Client
	peerTimeout time.Duration
}

// NewPeerTransport builds a client per node in nodes. peerTimeout bounds a
// whole sub-request; dialTimeout bounds only the TCP connect.
func NewPeerTransport(nodes []string, peerTimeout, dialTimeout time.Duration) *PeerTransport {
	clients := make(map[string]*http.Client, len(nodes))
	dialer := &net.Dialer{Timeout: dialTimeout}
	for _, n := range nodes {
		clients[n] = &http.Client{
			Timeout: peerTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		}
	}
	return &PeerTransport{clients: clients, peerTimeout: peerTimeout}
}

// Do issues method/path against node, proxied (X-OK-Proxy: True) so the
// receiving coordinator treats this as an inter-coordinator request. The
// call blocks the calling goroutine only — callers run it concurrently
// across replicas to get the "all sub-requests start before any is
// awaited" fan-out semantics.
func (p *PeerTransport) Do(ctx context.Context, node, method, path string, body []byte) PeerResponse {
	client, ok := p.clients[node]
	if !ok {
		return PeerResponse{Err: fmt.Errorf("cluster: no client configured for peer %q", node)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.peerTimeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, node+path, rdr)
	if err != nil {
		return PeerResponse{Err: fmt.Errorf("cluster: build request to %s: %w", node, err)}
	}
	req.Header.Set(ProxyHeader, "True")

	resp, err := client.Do(req)
	if err != nil {
		return PeerResponse{Err: fmt.Errorf("cluster: request to %s: %w", node, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return PeerResponse{Err: fmt.Errorf("cluster: read response from %s: %w", node, err)}
	}
	return PeerResponse{StatusCode: resp.StatusCode, Body: respBody}
}
