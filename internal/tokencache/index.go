// Package tokencache maps public link token digests to request ids so the
// public resolver can skip the digest index scan on hot links. Entries are
// hints only; the resolver always re-checks the aggregate.
package tokencache

import (
	"context"
	"sync"
	"time"
)

type Index interface {
	// Lookup returns the request id stored for hash. ok is false on a miss.
	Lookup(ctx context.Context, hash string) (requestID string, ok bool, err error)
	// Store records hash -> requestID. ttl <= 0 keeps the entry until Forget.
	Store(ctx context.Context, hash, requestID string, ttl time.Duration) error
	Forget(ctx context.Context, hash string) error
}

// Memory is a process-local Index.
type Memory struct {
	mu  sync.Mutex
	now func() time.Time
	m   map[string]memEntry
}

type memEntry struct {
	requestID string
	expires   time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now, m: make(map[string]memEntry)}
}

func (c *Memory) Lookup(_ context.Context, hash string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[hash]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.m, hash)
		return "", false, nil
	}
	return e.requestID, true, nil
}

func (c *Memory) Store(_ context.Context, hash, requestID string, ttl time.Duration) error {
	e := memEntry{requestID: requestID}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[hash] = e
	c.mu.Unlock()
	return nil
}

func (c *Memory) Forget(_ context.Context, hash string) error {
	c.mu.Lock()
	delete(c.m, hash)
	c.mu.Unlock()
	return nil
}

// Nop never caches anything.
type Nop struct{}

func (Nop) Lookup(context.Context, string) (string, bool, error)       { return "", false, nil }
func (Nop) Store(context.Context, string, string, time.Duration) error { return nil }
func (Nop) Forget(context.Context, string) error                       { return nil }
