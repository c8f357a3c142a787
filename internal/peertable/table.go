// Package peertable holds the process-wide binding table from overlay
// protocol address to NBMA address, modelled after the teacher's
// NDPStats: a single map guarded by a RWMutex, written under Lock, read
// under RLock, with an explicit Prune step for expiry.
package peertable

import (
	"encoding/hex"
	"sync"
	"time"
)

// Binding is one overlay-address -> NBMA-address mapping, plus the
// bookkeeping needed to expire it.
type Binding struct {
	NBMAAddr    []byte
	HoldingTime time.Duration
	Registered  time.Time
}

// Expired reports whether the binding has outlived its holding time as of
// now. A HoldingTime of 0 never expires — RFC 2332 uses 0 to mean "no
// timeout" on NAK entries, and this agent extends that convention to mean
// "held until explicitly purged" for any binding recorded with it.
func (b Binding) Expired(now time.Time) bool {
	if b.HoldingTime <= 0 {
		return false
	}
	return now.After(b.Registered.Add(b.HoldingTime))
}

// Table is the peer table: a concurrently-accessed mapping from overlay
// protocol address to NBMA protocol address. Entries are keyed by the raw
// address bytes (hex-encoded, since []byte is not a valid map key) so V4
// and V6 literals never collide.
type Table struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// New creates an empty peer table.
func New() *Table {
	return &Table{bindings: make(map[string]Binding)}
}

func key(protoAddr []byte) string { return hex.EncodeToString(protoAddr) }

// Insert records or overwrites the binding for protoAddr. Insertion order
// is irrelevant and at most one binding per overlay address is kept.
func (t *Table) Insert(protoAddr, nbmaAddr []byte, holdingTime time.Duration) {
	nbma := append([]byte(nil), nbmaAddr...)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[key(protoAddr)] = Binding{
		NBMAAddr:    nbma,
		HoldingTime: holdingTime,
		Registered:  time.Now(),
	}
}

// Lookup returns the NBMA address bound to protoAddr, if any and not
// expired.
func (t *Table) Lookup(protoAddr []byte) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.bindings[key(protoAddr)]
	if !ok || b.Expired(time.Now()) {
		return nil, false
	}
	return b.NBMAAddr, true
}

// Remove deletes the binding for protoAddr, if any. It is a no-op if
// protoAddr was never bound.
func (t *Table) Remove(protoAddr []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.bindings, key(protoAddr))
}

// Len returns the number of bindings currently held, expired or not.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}

// Prune removes bindings whose holding time has elapsed. It is cheap to
// call on an idle timer; a full table scan only runs on this explicit
// call, never on the request path.
func (t *Table) Prune() int {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for k, b := range t.bindings {
		if b.Expired(now) {
			delete(t.bindings, k)
			removed++
		}
	}
	return removed
}

// Entry is a read-only snapshot of one binding, keyed by its overlay
// protocol address, for display/monitoring use.
type Entry struct {
	ProtoAddr   []byte
	NBMAAddr    []byte
	HoldingTime time.Duration
	Registered  time.Time
}

// Snapshot returns every current binding, expired or not, for the
// operator-facing monitor. It never mutates the table.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.bindings))
	for k, b := range t.bindings {
		proto, err := hex.DecodeString(k)
		if err != nil {
			continue
		}
		out = append(out, Entry{
			ProtoAddr:   proto,
			NBMAAddr:    append([]byte(nil), b.NBMAAddr...),
			HoldingTime: b.HoldingTime,
			Registered:  b.Registered,
		})
	}
	return out
}
