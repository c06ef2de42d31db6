package monitor

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAddListRemove(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add("https://x/detail/1.html", "书一", "第十章", "2026-08-01"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("https://x/detail/2.html", "书二", "第三章", "2026-08-02"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Title != "书一" || entries[0].LatestChapter != "第十章" {
		t.Errorf("entries[0] = %+v", entries[0])
	}

	if err := s.Remove("https://x/detail/1.html"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	entries, _ = s.List()
	if len(entries) != 1 || entries[0].Title != "书二" {
		t.Errorf("after remove: %+v", entries)
	}
}

func TestStoreAddIsUpsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add("https://x/detail/1.html", "书一", "第一章", "2026-08-01"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("https://x/detail/1.html", "书一(改名)", "第二章", "2026-08-02"); err != nil {
		t.Fatalf("re-Add() error = %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Title != "书一(改名)" || entries[0].LatestChapter != "第二章" {
		t.Errorf("entry after upsert = %+v", entries[0])
	}
}

func TestStoreMarkSeen(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add("https://x/detail/1.html", "书一", "第一章", "2026-08-01"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSeen("https://x/detail/1.html", "第五章", "2026-08-15"); err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}

	e, err := s.Get("https://x/detail/1.html")
	if err != nil {
		t.Fatal(err)
	}
	if e.LatestChapter != "第五章" || e.UpdateTime != "2026-08-15" {
		t.Errorf("entry after MarkSeen = %+v", e)
	}
}

func TestStoreUnwatchedErrors(t *testing.T) {
	s := openTestStore(t)

	if err := s.Remove("https://x/nope.html"); !errors.Is(err, ErrNotWatched) {
		t.Errorf("Remove() error = %v, want ErrNotWatched", err)
	}
	if _, err := s.Get("https://x/nope.html"); !errors.Is(err, ErrNotWatched) {
		t.Errorf("Get() error = %v, want ErrNotWatched", err)
	}
	if err := s.MarkSeen("https://x/nope.html", "x", "y"); !errors.Is(err, ErrNotWatched) {
		t.Errorf("MarkSeen() error = %v, want ErrNotWatched", err)
	}
}
