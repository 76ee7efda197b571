package gamestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "input", "games.json"), nil)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	all, err := s.Load(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("Load = %v, %v", all, err)
	}
	id, err := s.NextID(ctx)
	if err != nil || id != 1 {
		t.Fatalf("NextID = %d, %v", id, err)
	}
	if r, err := s.Get(ctx, 1); err != nil || r != nil {
		t.Fatalf("Get = %v, %v", r, err)
	}
}

func TestFileStoreSaveOrUpdate(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	first := Encode(playedGame(t, 1))
	second := Encode(playedGame(t, 5))
	for _, r := range []Record{first, second} {
		if err := s.SaveOrUpdate(ctx, r); err != nil {
			t.Fatalf("SaveOrUpdate: %v", err)
		}
	}

	first.CurrentPlayerColor = second.CurrentPlayerColor.Opponent()
	first.Moves = first.Moves[:1]
	if err := s.SaveOrUpdate(ctx, first); err != nil {
		t.Fatalf("SaveOrUpdate replace: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 5 {
		t.Fatalf("list ids = %+v", list)
	}
	if len(list[0].Moves) != 1 {
		t.Fatalf("record 1 not replaced: %d moves", len(list[0].Moves))
	}
	if id, _ := s.NextID(ctx); id != 6 {
		t.Fatalf("NextID = %d, want 6", id)
	}

	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, 99); err != nil {
		t.Fatalf("Delete unknown: %v", err)
	}
	all, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := all[1]; ok || len(all) != 1 {
		t.Fatalf("after delete: %v", all)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	s := newTestFileStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileStoreHonoursContext(t *testing.T) {
	s := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SaveOrUpdate(ctx, Encode(playedGame(t, 1))); err == nil {
		t.Fatalf("expected context error")
	}
}
