package ammo

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseEntries re-reads ammo output and returns the verb of each entry,
// reading as many request bytes as the size prefix says and checking that
// a CRLF trailer follows them.
func parseEntries(t *testing.T, raw []byte) []string {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(raw))
	var verbs []string
	for {
		header, err := r.ReadString('\n')
		if err != nil {
			break
		}
		header = strings.TrimSuffix(header, "\n")
		parts := strings.SplitN(header, " ", 2)
		require.Len(t, parts, 2)
		n, err := strconv.Atoi(parts[0])
		require.NoError(t, err)

		buf := make([]byte, n)
		_, err = r.Read(buf)
		require.NoError(t, err)

		trailer := make([]byte, 2)
		_, err = r.Read(trailer)
		require.NoError(t, err)
		assert.Equal(t, "\r\n", string(trailer))

		verbs = append(verbs, parts[1])
	}
	return verbs
}

func TestGeneratePutsUnique(t *testing.T) {
	var buf bytes.Buffer
	g := NewGenerator("localhost:8080", &buf)
	require.NoError(t, g.Generate(PutsUnique, 5))

	verbs := parseEntries(t, buf.Bytes())
	assert.Equal(t, []string{"PUT", "PUT", "PUT", "PUT", "PUT"}, verbs)
	assert.Contains(t, buf.String(), "key-0")
	assert.Contains(t, buf.String(), "key-4")
}

func TestGenerateGetsLatestUsesHotKey(t *testing.T) {
	var buf bytes.Buffer
	g := NewGenerator("localhost:8080", &buf)
	require.NoError(t, g.Generate(GetsLatest, 3))

	s := buf.String()
	assert.Equal(t, 3, strings.Count(s, hotKey))
}

func TestGenerateMixedCyclesVerbs(t *testing.T) {
	var buf bytes.Buffer
	g := NewGenerator("localhost:8080", &buf)
	require.NoError(t, g.Generate(Mixed, 6))

	verbs := parseEntries(t, buf.Bytes())
	assert.Equal(t, []string{"PUT", "GET", "DELETE", "PUT", "GET", "DELETE"}, verbs)
}

func TestGenerateUnknownMode(t *testing.T) {
	var buf bytes.Buffer
	g := NewGenerator("localhost:8080", &buf)
	assert.Error(t, g.Generate(Mode("bogus"), 1))
}

func TestBuildRequestIncludesContentLength(t *testing.T) {
	req := buildRequest("PUT", "/v0/entity?id=k", "localhost:8080", []byte("hello"))
	assert.Contains(t, string(req), "Content-Length: 5\r\n")
	assert.Contains(t, string(req), "PUT /v0/entity?id=k HTTP/1.1\r\n")
}
