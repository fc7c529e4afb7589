package refscript_test

import (
	"context"
	"errors"
	"testing"

	"github.com/interloq/interloq/internal/refscript"
)

func TestMemStore_AddGeneratesID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := refscript.NewMemStore()

	added, err := s.Add(ctx, refscript.Unit{Title: "one", Language: "ko", Primary: "x"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.ID == "" {
		t.Fatal("Add: expected a generated ID")
	}

	got, err := s.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "one" {
		t.Errorf("Get: title = %q, want %q", got.Title, "one")
	}
}

func TestMemStore_AddRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := refscript.NewMemStore()

	if _, err := s.Add(ctx, refscript.Unit{ID: "u1", Primary: "x"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, refscript.Unit{ID: "u1", Primary: "y"}); !errors.Is(err, refscript.ErrDuplicateID) {
		t.Fatalf("Add duplicate: err = %v, want ErrDuplicateID", err)
	}
}

func TestMemStore_GetNotFound(t *testing.T) {
	t.Parallel()

	s := refscript.NewMemStore()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, refscript.ErrNotFound) {
		t.Fatalf("Get: err = %v, want ErrNotFound", err)
	}
}

func TestMemStore_RemoveKeepsOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := refscript.NewMemStore()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Add(ctx, refscript.Unit{ID: id, Primary: "x"}); err != nil {
			t.Fatalf("Add %q: %v", id, err)
		}
	}

	if err := s.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "b"); !errors.Is(err, refscript.ErrNotFound) {
		t.Fatalf("Remove again: err = %v, want ErrNotFound", err)
	}

	all, err := s.List(ctx, refscript.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "c" {
		t.Fatalf("List after Remove: got %+v", all)
	}
}

func TestMemStore_ListByTags(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := refscript.NewMemStore()
	units := []refscript.Unit{
		{ID: "a", Primary: "x", Tags: []string{"finance", "short"}},
		{ID: "b", Primary: "y", Tags: []string{"finance"}},
		{ID: "c", Primary: "z", Tags: []string{"daily"}},
	}
	if n, err := s.BulkImport(ctx, units); err != nil || n != 3 {
		t.Fatalf("BulkImport: n=%d err=%v", n, err)
	}

	got, err := s.List(ctx, refscript.ListOptions{Tags: []string{"finance", "short"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("List(tags): got %+v, want only unit a", got)
	}
}
