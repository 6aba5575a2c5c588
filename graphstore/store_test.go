package graphstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/pywalk/registry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "graphs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func smallSnapshot(n int64) *registry.Snapshot {
	m := registry.NewMemory()
	a := m.Allocate()
	m.DefinePrimitive(a, registry.Primitive{Kind: registry.PrimInt, Int: n})
	b := m.Allocate()
	m.DefinePrimitive(b, registry.Primitive{Kind: registry.PrimStr, Str: "x"})
	root := m.Allocate()
	m.DefineTuple(root, []registry.ID{a, b})
	return m.Snapshot(root)
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	snap := smallSnapshot(1)
	rec, err := s.Put(ctx, snap, "first")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.WalkID == "" || rec.Nodes != 3 || rec.Root != snap.Root {
		t.Errorf("Put record = %+v", rec)
	}

	got, err := s.Get(ctx, rec.Hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h, _ := got.HashString()
	if h != rec.Hash {
		t.Errorf("Get returned snapshot with hash %s, want %s", h, rec.Hash)
	}
}

func TestPutDeduplicatesContent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	r1, err := s.Put(ctx, smallSnapshot(1), "a")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := s.Put(ctx, smallSnapshot(1), "b")
	if err != nil {
		t.Fatal(err)
	}
	if r1.Hash != r2.Hash {
		t.Error("identical graphs should share a hash")
	}
	if r1.WalkID == r2.WalkID {
		t.Error("each Put should get its own walk id")
	}
	if _, err := s.Put(ctx, smallSnapshot(2), "c"); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}
	walks, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(walks) != 3 || walks[0].Label != "a" || walks[2].Label != "c" {
		t.Errorf("List = %+v", walks)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "deadbeef"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("got %v, want ErrSnapshotNotFound", err)
	}
}
