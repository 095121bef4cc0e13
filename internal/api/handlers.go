// Package api wires up the Gin HTTP router: the entity dispatcher (§4.5)
// plus the ambient status and debug endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"okkv/internal/cluster"
	"okkv/internal/coordinator"
	"okkv/internal/placement"
	"okkv/internal/storage"
)

// Handler holds everything a request needs: the coordinator for
// /v0/entity, the local store for the /v0/entities range scan, and the
// static topology for introspection.
type Handler struct {
	coord    *coordinator.Coordinator
	store    *storage.TimestampedStore
	topology *cluster.Topology
	log      *logrus.Entry
}

// NewHandler builds a Handler.
func NewHandler(coord *coordinator.Coordinator, store *storage.TimestampedStore, topology *cluster.Topology, log *logrus.Entry) *Handler {
	return &Handler{coord: coord, store: store, topology: topology, log: log}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/v0/status", h.Status)
	r.Any("/v0/entity", h.Entity)
	r.GET("/v0/entities", h.Entities)
	r.GET("/v0/debug/nodes", h.DebugNodes)
}

// Status handles GET /v0/status.
func (h *Handler) Status(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Entity handles GET/PUT/DELETE /v0/entity?id=K[&replicas=A/F], the
// request dispatcher described in §4.5: validate, derive the proxy flag
// and RF, and hand off to the coordinator.
func (h *Handler) Entity(c *gin.Context) {
	var method coordinator.Method
	switch c.Request.Method {
	case http.MethodGet:
		method = coordinator.MethodGet
	case http.MethodPut:
		method = coordinator.MethodPut
	case http.MethodDelete:
		method = coordinator.MethodDelete
	default:
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	id := c.Query("id")
	if id == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	rf, err := placement.ParseRF(c.Query("replicas"), h.topology.N())
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var value []byte
	if method == coordinator.MethodPut {
		value, err = c.GetRawData()
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
	}

	proxy := c.GetHeader(cluster.ProxyHeader) == "True"

	resp := h.coord.Handle(c.Request.Context(), coordinator.Request{
		Method: method,
		Key:    []byte(id),
		Value:  value,
		RF:     rf,
		Proxy:  proxy,
	})

	if resp.Body == nil {
		c.Status(resp.Status)
		return
	}
	c.Data(resp.Status, "application/octet-stream", resp.Body)
}

// Entities handles GET /v0/entities?start=S[&end=E]: a chunked, ordered
// range scan of the local engine only. Each chunk is "key LF value", where
// value is the stored encoded record as-is (tombstones are not skipped).
func (h *Handler) Entities(c *gin.Context) {
	start := c.Query("start")
	if start == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	var end []byte
	if e := c.Query("end"); e != "" {
		end = []byte(e)
	}

	it, err := h.store.Range([]byte(start), end)
	if err != nil {
		h.log.WithError(err).Warn("api: range scan failed")
		c.Status(http.StatusInternalServerError)
		return
	}
	defer it.Close()

	c.Status(http.StatusOK)
	flusher, canFlush := c.Writer.(http.Flusher)
	for it.Next() {
		c.Writer.Write(it.Key())
		c.Writer.Write([]byte("\n"))
		c.Writer.Write(it.Value())
		if canFlush {
			flusher.Flush()
		}
	}
	if err := it.Err(); err != nil {
		h.log.WithError(err).Warn("api: range scan iterator error")
	}
}

// DebugNodes handles GET /v0/debug/nodes: read-only topology
// introspection for operators.
func (h *Handler) DebugNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"self":  h.topology.Self,
		"nodes": h.topology.Nodes,
	})
}
