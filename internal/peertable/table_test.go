package peertable

import (
	"testing"
	"time"
)

func TestInsertLookupRoundTrip(t *testing.T) {
	tbl := New()
	proto := []byte{10, 0, 0, 2}
	nbma := []byte{198, 51, 100, 5}

	tbl.Insert(proto, nbma, time.Hour)

	got, ok := tbl.Lookup(proto)
	if !ok {
		t.Fatalf("expected a binding for %v", proto)
	}
	if string(got) != string(nbma) {
		t.Fatalf("Lookup = %v, want %v", got, nbma)
	}
}

func TestLookupMissUnknownAddress(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Lookup([]byte{10, 0, 0, 9}); ok {
		t.Fatalf("expected no binding for an address never inserted")
	}
}

func TestZeroHoldingTimeNeverExpires(t *testing.T) {
	tbl := New()
	proto := []byte{10, 0, 0, 3}
	tbl.Insert(proto, []byte{1, 2, 3, 4}, 0)

	b := tbl.bindings[key(proto)]
	b.Registered = time.Now().Add(-365 * 24 * time.Hour)
	tbl.bindings[key(proto)] = b

	if _, ok := tbl.Lookup(proto); !ok {
		t.Fatalf("a zero holding time binding must never expire")
	}
	if n := tbl.Prune(); n != 0 {
		t.Fatalf("Prune removed %d zero-holding-time bindings, want 0", n)
	}
}

func TestExpiredBindingIsPrunedAndHiddenFromLookup(t *testing.T) {
	tbl := New()
	proto := []byte{10, 0, 0, 4}
	tbl.Insert(proto, []byte{1, 2, 3, 4}, time.Millisecond)

	time.Sleep(5 * time.Millisecond)

	if _, ok := tbl.Lookup(proto); ok {
		t.Fatalf("expired binding should not be returned by Lookup")
	}
	if n := tbl.Prune(); n != 1 {
		t.Fatalf("Prune() = %d, want 1", n)
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d after pruning the only binding, want 0", tbl.Len())
	}
}

func TestRemoveDeletesBinding(t *testing.T) {
	tbl := New()
	proto := []byte{10, 0, 0, 5}
	tbl.Insert(proto, []byte{9, 9, 9, 9}, time.Hour)
	tbl.Remove(proto)
	if _, ok := tbl.Lookup(proto); ok {
		t.Fatalf("expected binding to be gone after Remove")
	}
}

func TestInsertOverwritesExistingBinding(t *testing.T) {
	tbl := New()
	proto := []byte{10, 0, 0, 6}
	tbl.Insert(proto, []byte{1, 1, 1, 1}, time.Hour)
	tbl.Insert(proto, []byte{2, 2, 2, 2}, time.Hour)

	got, ok := tbl.Lookup(proto)
	if !ok || string(got) != string([]byte{2, 2, 2, 2}) {
		t.Fatalf("Lookup = %v, ok=%v, want {2,2,2,2}", got, ok)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (overwrite, not append)", tbl.Len())
	}
}

func TestSnapshotReflectsAllBindings(t *testing.T) {
	tbl := New()
	tbl.Insert([]byte{10, 0, 0, 7}, []byte{1, 1, 1, 1}, time.Hour)
	tbl.Insert([]byte{10, 0, 0, 8}, []byte{2, 2, 2, 2}, time.Hour)

	snap := tbl.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
}
