package engine

import (
	"sync"
	"time"
)

// classCounters tracks one task class. A task is resolved when it either
// succeeded or permanently failed; resolved never exceeds total, and at
// quiescence resolved == total.
type classCounters struct {
	total     int
	succeeded int
	failed    int
}

func (c classCounters) resolved() int { return c.succeeded + c.failed }

// state is the engine's only globally shared mutable data. Every counter
// read-modify-write happens under mu; nothing here is touched without it.
type state struct {
	mu sync.Mutex

	chapters classCounters
	images   classCounters

	bytesDownloaded int64
	startTime       time.Time

	consecutiveErrors int
	degraded          bool

	active         int
	pendingRetries int
}

func (s *state) counters(c Class) *classCounters {
	if c == ClassChapter {
		return &s.chapters
	}
	return &s.images
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	ChaptersTotal     int
	ChaptersSucceeded int
	ChaptersFailed    int

	ImagesTotal     int
	ImagesSucceeded int
	ImagesFailed    int

	BytesDownloaded int64
}

// FailedTasks returns the total permanent failures across both classes.
func (st Stats) FailedTasks() int {
	return st.ChaptersFailed + st.ImagesFailed
}

func (s *state) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		ChaptersTotal:     s.chapters.total,
		ChaptersSucceeded: s.chapters.succeeded,
		ChaptersFailed:    s.chapters.failed,
		ImagesTotal:       s.images.total,
		ImagesSucceeded:   s.images.succeeded,
		ImagesFailed:      s.images.failed,
		BytesDownloaded:   s.bytesDownloaded,
	}
}
