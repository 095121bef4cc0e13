package api

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okkv/internal/cluster"
	"okkv/internal/coordinator"
	"okkv/internal/storage"
)

type memoryEngine struct{ data map[string][]byte }

func newMemoryEngine() *memoryEngine { return &memoryEngine{data: make(map[string][]byte)} }

func (m *memoryEngine) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}
func (m *memoryEngine) Upsert(key, value []byte) error {
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}
func (m *memoryEngine) Remove(key []byte) error {
	delete(m.data, string(key))
	return nil
}
func (m *memoryEngine) Range(from, to []byte) (storage.Iterator, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if k < string(from) {
			continue
		}
		if to != nil && k >= string(to) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memoryIterator{m: m, keys: keys, idx: -1}, nil
}
func (m *memoryEngine) Compact() error { return nil }
func (m *memoryEngine) Close() error   { return nil }

type memoryIterator struct {
	m    *memoryEngine
	keys []string
	idx  int
}

func (it *memoryIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}
func (it *memoryIterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memoryIterator) Value() []byte { return it.m.data[it.keys[it.idx]] }
func (it *memoryIterator) Err() error    { return nil }
func (it *memoryIterator) Close() error  { return nil }

func newTestRouter(t *testing.T) (*httptest.Server, *storage.TimestampedStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	self := "http://node1"
	topology, err := cluster.NewTopology([]string{self}, self)
	require.NoError(t, err)
	transport := cluster.NewPeerTransport([]string{self}, 0, 0)
	store := storage.NewTimestampedStore(newMemoryEngine())
	log := logrus.NewEntry(logrus.New())
	coord := coordinator.New(topology, transport, store, log)

	router := gin.New()
	router.Use(RequestID(), Logger(log), Recovery(log))
	NewHandler(coord, store, topology, log).Register(router)

	return httptest.NewServer(router), store
}

func TestStatus(t *testing.T) {
	srv, _ := newTestRouter(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v0/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestEntityMissingIDIsBadRequest(t *testing.T) {
	srv, _ := newTestRouter(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v0/entity")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntityUnsupportedMethodIs405(t *testing.T) {
	srv, _ := newTestRouter(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v0/entity?id=a", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestEntityPutGetDeleteCycle(t *testing.T) {
	srv, _ := newTestRouter(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v0/entity?id=a", strings.NewReader("1"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v0/entity?id=a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/v0/entity?id=a", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v0/entity?id=a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEntitiesRangeScan(t *testing.T) {
	srv, store := newTestRouter(t)
	defer srv.Close()

	for _, k := range []string{"a", "aa", "ab", "ac", "b", "c", "cc", "d"} {
		require.NoError(t, store.PutTS([]byte(k), []byte(k), 1))
	}

	resp, err := http.Get(srv.URL + "/v0/entities?start=aa&end=cc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	for _, k := range []string{"aa", "ab", "ac", "b", "c"} {
		assert.Contains(t, body, k)
	}
	assert.NotContains(t, body, "cc\ncc")
}

func TestEntitiesMissingStartIsBadRequest(t *testing.T) {
	srv, _ := newTestRouter(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v0/entities")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDebugNodes(t *testing.T) {
	srv, _ := newTestRouter(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v0/debug/nodes")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
