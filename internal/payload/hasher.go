// Package payload computes the digest of the business payload that is bound
// into issued tokens through the "data" claim.
package payload

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

//go:embed default.json
var defaultPayload []byte

var ErrInvalidJSON = errors.New("payload is not valid JSON")

var osWriteFile = func(path string, b []byte, perm uint32) error {
	return os.WriteFile(path, b, os.FileMode(perm))
}

// Hasher holds the payload exactly as configured. Only insignificant
// whitespace is removed; key order and literal values are kept, since the
// digest covers the serialized text and not the decoded value.
type Hasher struct {
	canonical []byte
	dumpPath  string
}

// New wraps raw as {"payload":<raw>}. When dumpPath is set, every Digest call
// writes the hashed string there.
func New(raw []byte, dumpPath string) (*Hasher, error) {
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	var buf bytes.Buffer
	buf.WriteString(`{"payload":`)
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	buf.WriteByte('}')
	return &Hasher{canonical: buf.Bytes(), dumpPath: dumpPath}, nil
}

// Load reads the payload from path, or uses the built-in payload when path is empty.
func Load(path, dumpPath string) (*Hasher, error) {
	if path == "" {
		return New(defaultPayload, dumpPath)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	h, err := New(raw, dumpPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Canonical returns a copy of the exact string that gets hashed.
func (h *Hasher) Canonical() []byte {
	return append([]byte(nil), h.canonical...)
}

// Digest dumps the canonical string (if configured) and returns its
// lowercase hex SHA-256.
func (h *Hasher) Digest() (string, error) {
	if h.dumpPath != "" {
		if err := osWriteFile(h.dumpPath, h.canonical, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", h.dumpPath, err)
		}
		slog.Debug("payload written", "path", h.dumpPath, "bytes", len(h.canonical))
	}
	return Sum(h.canonical), nil
}

func Sum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
