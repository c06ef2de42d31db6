package download

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/handiism/bookfetch/internal/config"
	"github.com/handiism/bookfetch/internal/engine"
	"github.com/handiism/bookfetch/internal/esjzone"
	"github.com/handiism/bookfetch/internal/httpx"
	"github.com/handiism/bookfetch/internal/imaging"
	"github.com/handiism/bookfetch/internal/model"
)

const (
	// Metadata fetch precedes any queue, so it carries its own small
	// fixed retry budget, distinct from the per-task policy.
	metadataAttempts = 3 // 1 try + 2 retries
	metadataDelay    = 2 * time.Second

	coverAttempts = 3
	coverDelay    = time.Second
)

// Manager drives book downloads end to end. Create one per logical
// session; each Download call runs its own engine.
type Manager struct {
	settings *config.Settings
	client   *httpx.Client
	log      *slog.Logger

	// OnProgress receives (class, resolved, total) on every
	// completion-count change. Optional.
	OnProgress func(class engine.Class, resolved, total int)

	// OnRateUpdate receives the formatted throughput and active worker
	// count once per telemetry tick. Optional.
	OnRateUpdate func(rate string, active int)
}

// NewManager creates a download manager over a fresh HTTP session.
func NewManager(settings *config.Settings, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	dumper := httpx.NewDumper(settings.Download.DebugDir, log)
	// The client backstop matches the per-task timeout so the configured
	// value governs; the engine enforces the same bound via context.
	return &Manager{
		settings: settings,
		client:   httpx.NewClient(settings.Download.TaskTimeout(), dumper),
		log:      log,
	}
}

// Client exposes the underlying HTTP session, e.g. for cookie loading
// and the login handshake.
func (m *Manager) Client() *httpx.Client { return m.client }

// fetchOptions select which chapters a run downloads and whether the
// synthesized introduction chapter is included.
type fetchOptions struct {
	images     bool
	intro      bool
	sinceTitle string // download only chapters after this title, when set
	untilTitle string // stop after this title (inclusive), when set
}

// FetchBook downloads the whole book: metadata, cover, intro chapter,
// then all chapter bodies and embedded images through the engine. The
// returned Stats carry succeeded/failed counts for both task classes.
func (m *Manager) FetchBook(ctx context.Context, url string, images bool) (*model.Book, engine.Stats, error) {
	book, targets, stats, err := m.fetch(ctx, url, fetchOptions{images: images, intro: true})
	_ = targets
	return book, stats, err
}

func (m *Manager) fetch(ctx context.Context, url string, opts fetchOptions) (*model.Book, []*model.Chapter, engine.Stats, error) {
	book, err := m.fetchMetadata(ctx, url)
	if err != nil {
		return nil, nil, engine.Stats{}, err
	}
	m.log.Info("book parsed", "title", book.Title, "chapters", len(book.Chapters))

	if opts.images && book.HasCover() {
		m.fetchCover(ctx, book)
	}

	targets := selectChapters(book.Chapters, opts.sinceTitle, opts.untilTitle)
	if opts.sinceTitle != "" && len(targets) == len(book.Chapters) {
		m.log.Warn("last seen chapter not found, downloading the whole book", "since", opts.sinceTitle)
	}

	if opts.intro {
		intro := synthesizeIntro(book)
		book.Chapters = append([]*model.Chapter{intro}, book.Chapters...)
	}

	stats, err := m.runEngine(ctx, targets, opts.images)
	if err != nil {
		return nil, nil, stats, err
	}

	m.log.Info("download finished",
		"chapters_ok", stats.ChaptersSucceeded, "images_ok", stats.ImagesSucceeded,
		"failed", stats.FailedTasks())
	return book, targets, stats, nil
}

// fetchMetadata fetches and parses the book page, retrying transport and
// parse errors within the fixed budget. Exhausting it fails the run.
func (m *Manager) fetchMetadata(ctx context.Context, url string) (*model.Book, error) {
	var book *model.Book
	err := retry.Do(
		func() error {
			page, err := m.client.GetString(ctx, url)
			if err != nil {
				return err
			}
			parsed, err := esjzone.ParseBook(page, url)
			if err != nil {
				return err
			}
			book = parsed
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(metadataAttempts),
		retry.Delay(metadataDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.log.Warn("metadata fetch failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch book metadata: %w", err)
	}
	return book, nil
}

// fetchCover downloads and normalizes the cover. Cover loss is never
// fatal: after the budget is spent the run proceeds without one.
func (m *Manager) fetchCover(ctx context.Context, book *model.Book) {
	err := retry.Do(
		func() error {
			data, err := m.client.Get(ctx, book.CoverURL)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return fmt.Errorf("cover download returned no data")
			}
			normalized, _, err := imaging.NormalizeCover(data)
			if err != nil {
				return err
			}
			book.CoverImage = normalized
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(coverAttempts),
		retry.Delay(coverDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.log.Warn("cover download failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		m.log.Error("cover download failed, continuing without cover", "url", book.CoverURL, "error", err)
		book.CoverImage = nil
	}
}

// runEngine fans out one chapter task per target chapter, runs the pool
// to quiescence, and always stops it — also on cancellation, so no
// worker outlives the run.
func (m *Manager) runEngine(ctx context.Context, targets []*model.Chapter, images bool) (engine.Stats, error) {
	r := &run{mgr: m, images: images}
	eng := engine.New(engine.Config{
		Workers:      m.settings.Download.MaxThreads,
		TaskTimeout:  m.settings.Download.TaskTimeout(),
		MaxRetries:   m.settings.Download.RetryAttempts,
		RetryDelays:  m.settings.Download.RetryDelayTable(),
		GatePath:     m.settings.Download.Dir,
		MinFreeBytes: m.settings.Download.MinFreeBytes(),
		OnProgress:   m.OnProgress,
		OnRateUpdate: m.OnRateUpdate,
		Logger:       m.log,
	}, r)
	r.eng = eng

	for _, ch := range targets {
		eng.AddChapterTask(&engine.ChapterTask{URL: ch.URL, Chapter: ch})
	}

	eng.Start()
	defer eng.Stop()

	if err := eng.WaitUntilComplete(ctx); err != nil {
		eng.Stop()
		return eng.Stats(), err
	}
	eng.Stop()
	return eng.Stats(), nil
}

// selectChapters returns the chapters after sinceTitle (exclusive) up to
// untilTitle (inclusive). Either bound may be empty; a bound whose title
// no longer appears falls back to the list edge on that side. An
// inverted range selects nothing.
func selectChapters(chapters []*model.Chapter, sinceTitle, untilTitle string) []*model.Chapter {
	start := 0
	if sinceTitle != "" {
		for i, ch := range chapters {
			if ch.Title == sinceTitle {
				start = i + 1
				break
			}
		}
	}
	end := len(chapters)
	if untilTitle != "" {
		for i, ch := range chapters {
			if ch.Title == untilTitle {
				end = i + 1
				break
			}
		}
	}
	if end < start {
		return nil
	}
	return chapters[start:end]
}
