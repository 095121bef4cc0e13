// Package ammo generates synthetic HTTP requests against the entity API,
// in the size-prefixed ammo format used for load testing: each request is
// preceded by its byte length and an HTTP-verb tag, and followed by a
// blank line.
package ammo

import (
	"bytes"
	"fmt"
	"io"
)

// Mode selects which traffic pattern Generate produces.
type Mode string

const (
	PutsUnique    Mode = "puts_unique"
	PutsOverwrite Mode = "puts_overwrite"
	GetsExisting  Mode = "gets_existing"
	GetsLatest    Mode = "gets_latest"
	Mixed         Mode = "mixed"
)

// hotKey is the single key puts_overwrite hammers and gets_latest reads
// back, so the two modes can be run one after another against a live node.
const hotKey = "hot-key"

// Generator writes ammo to an underlying stream, addressed at host (used
// only for the ammo's Host header; nothing is actually sent over the
// network here).
type Generator struct {
	Host string
	w    io.Writer
}

// NewGenerator returns a Generator writing to w.
func NewGenerator(host string, w io.Writer) *Generator {
	return &Generator{Host: host, w: w}
}

// Generate writes count requests for mode to the generator's stream.
func (g *Generator) Generate(mode Mode, count int) error {
	switch mode {
	case PutsUnique:
		return g.putsUnique(count)
	case PutsOverwrite:
		return g.putsOverwrite(count)
	case GetsExisting:
		return g.getsExisting(count)
	case GetsLatest:
		return g.getsLatest(count)
	case Mixed:
		return g.mixed(count)
	default:
		return fmt.Errorf("ammo: unknown mode %q", mode)
	}
}

func (g *Generator) putsUnique(count int) error {
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("key-%d", i)
		value := fmt.Sprintf("value-%d", i)
		if err := g.emitPut(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) putsOverwrite(count int) error {
	for i := 0; i < count; i++ {
		if err := g.emitPut(hotKey, fmt.Sprintf("value-%d", i)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) getsExisting(count int) error {
	// Addresses the keys puts_unique would have written, on the
	// assumption the two modes are run back to back against the same
	// node, as a load-test script would.
	n := count
	if n == 0 {
		n = 1
	}
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("key-%d", i%n)
		if err := g.emitGet(key); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) getsLatest(count int) error {
	for i := 0; i < count; i++ {
		if err := g.emitGet(hotKey); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) mixed(count int) error {
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("key-%d", i/3)
		switch i % 3 {
		case 0:
			if err := g.emitPut(key, fmt.Sprintf("value-%d", i)); err != nil {
				return err
			}
		case 1:
			if err := g.emitGet(key); err != nil {
				return err
			}
		default:
			if err := g.emitDelete(key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) emitPut(key, value string) error {
	req := buildRequest("PUT", "/v0/entity?id="+key, g.Host, []byte(value))
	return g.emit("PUT", req)
}

func (g *Generator) emitGet(key string) error {
	req := buildRequest("GET", "/v0/entity?id="+key, g.Host, nil)
	return g.emit("GET", req)
}

func (g *Generator) emitDelete(key string) error {
	req := buildRequest("DELETE", "/v0/entity?id="+key, g.Host, nil)
	return g.emit("DELETE", req)
}

func buildRequest(method, path, host string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(method)
	buf.WriteString(" ")
	buf.WriteString(path)
	buf.WriteString(" HTTP/1.1\r\n")
	buf.WriteString("Host: ")
	buf.WriteString(host)
	buf.WriteString("\r\n")
	if body != nil {
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(body))
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}

// emit writes one ammo entry: "<N> <verb>\n<request>\r\n".
func (g *Generator) emit(verb string, req []byte) error {
	if _, err := fmt.Fprintf(g.w, "%d %s\n", len(req), verb); err != nil {
		return fmt.Errorf("ammo: write header: %w", err)
	}
	if _, err := g.w.Write(req); err != nil {
		return fmt.Errorf("ammo: write request: %w", err)
	}
	if _, err := fmt.Fprint(g.w, "\r\n"); err != nil {
		return fmt.Errorf("ammo: write trailer: %w", err)
	}
	return nil
}
