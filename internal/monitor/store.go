package monitor

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // driver registration
)

// ErrNotWatched is returned when an operation names a book that is not
// in the store.
var ErrNotWatched = errors.New("book is not being watched")

// Entry is one watched book.
type Entry struct {
	URL           string
	Title         string
	LatestChapter string
	UpdateTime    string
	AddedAt       time.Time
	CheckedAt     time.Time
}

// Store persists the watch list in a SQLite database file.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS watched (
	url            TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	latest_chapter TEXT NOT NULL DEFAULT '',
	update_time    TEXT NOT NULL DEFAULT '',
	added_at       TIMESTAMP NOT NULL,
	checked_at     TIMESTAMP
);`

// OpenStore opens (creating if needed) the watch-list database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open watch store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init watch store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Add starts watching a book. Re-adding an existing URL refreshes its
// title and latest chapter but keeps the original added_at.
func (s *Store) Add(url, title, latestChapter, updateTime string) error {
	_, err := s.db.Exec(`
		INSERT INTO watched (url, title, latest_chapter, update_time, added_at, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			latest_chapter = excluded.latest_chapter,
			update_time = excluded.update_time,
			checked_at = excluded.checked_at`,
		url, title, latestChapter, updateTime, time.Now(), time.Now())
	if err != nil {
		return fmt.Errorf("add watched book: %w", err)
	}
	return nil
}

// Remove stops watching a book.
func (s *Store) Remove(url string) error {
	res, err := s.db.Exec(`DELETE FROM watched WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("remove watched book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotWatched
	}
	return nil
}

// List returns all watched books in the order they were added.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT url, title, latest_chapter, update_time, added_at, COALESCE(checked_at, added_at)
		FROM watched ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("list watched books: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.URL, &e.Title, &e.LatestChapter, &e.UpdateTime, &e.AddedAt, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan watched book: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one watched book.
func (s *Store) Get(url string) (Entry, error) {
	var e Entry
	err := s.db.QueryRow(`
		SELECT url, title, latest_chapter, update_time, added_at, COALESCE(checked_at, added_at)
		FROM watched WHERE url = ?`, url).
		Scan(&e.URL, &e.Title, &e.LatestChapter, &e.UpdateTime, &e.AddedAt, &e.CheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotWatched
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get watched book: %w", err)
	}
	return e, nil
}

// MarkSeen records the latest chapter after a check or after an update
// was downloaded.
func (s *Store) MarkSeen(url, latestChapter, updateTime string) error {
	res, err := s.db.Exec(`
		UPDATE watched SET latest_chapter = ?, update_time = ?, checked_at = ?
		WHERE url = ?`,
		latestChapter, updateTime, time.Now(), url)
	if err != nil {
		return fmt.Errorf("mark watched book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotWatched
	}
	return nil
}
