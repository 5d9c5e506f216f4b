// Package trace carries the per-request trace id through the request context.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey int

const key ctxKey = 1

// Header is both accepted from callers and echoed on responses.
const Header = "X-Trace-Id"

func NewID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

func From(ctx context.Context) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
