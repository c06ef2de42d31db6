package monitor

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/bookfetch/internal/esjzone"
	"github.com/handiism/bookfetch/internal/httpx"
)

// checkConcurrency caps the parallel page fetches during a check run.
const checkConcurrency = 5

// Result is the outcome of checking one watched book.
type Result struct {
	Entry      Entry
	NewChapter string // latest chapter on the site, when it changed
	UpdateTime string
	HasUpdate  bool
	Err        error
}

// Checker refetches watched book pages and compares them against the
// store.
type Checker struct {
	store  *Store
	client *httpx.Client
	log    *slog.Logger
}

// NewChecker creates a checker over the given store and HTTP session.
func NewChecker(store *Store, client *httpx.Client, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{store: store, client: client, log: log}
}

// CheckAll checks every watched book concurrently and returns one Result
// per book, in watch-list order. Per-book failures land in Result.Err;
// only a cancelled context fails the whole run.
func (c *Checker) CheckAll(ctx context.Context) ([]Result, error) {
	entries, err := c.store.List()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(entries))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			res := c.checkOne(ctx, e)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchStatus fetches the current status of a book page without
// touching the store, used to seed the baseline when watching begins.
func (c *Checker) FetchStatus(ctx context.Context, url string) (*esjzone.Status, error) {
	page, err := c.client.GetString(ctx, url)
	if err != nil {
		return nil, err
	}
	return esjzone.ParseStatus(page, url)
}

// CheckOne checks a single watched book.
func (c *Checker) CheckOne(ctx context.Context, url string) (Result, error) {
	entry, err := c.store.Get(url)
	if err != nil {
		return Result{}, err
	}
	return c.checkOne(ctx, entry), nil
}

func (c *Checker) checkOne(ctx context.Context, entry Entry) Result {
	res := Result{Entry: entry}

	page, err := c.client.GetString(ctx, entry.URL)
	if err != nil {
		res.Err = err
		return res
	}
	status, err := esjzone.ParseStatus(page, entry.URL)
	if err != nil {
		res.Err = err
		return res
	}

	res.NewChapter = status.LatestChapter
	res.UpdateTime = status.UpdateTime
	res.HasUpdate = status.LatestChapter != "" && status.LatestChapter != entry.LatestChapter
	if res.HasUpdate {
		c.log.Info("update found", "title", entry.Title, "latest", status.LatestChapter)
	}

	// Record the check time even when nothing changed, keeping the
	// stored latest chapter until the update is actually downloaded.
	if !res.HasUpdate {
		if err := c.store.MarkSeen(entry.URL, entry.LatestChapter, status.UpdateTime); err != nil {
			c.log.Warn("could not record check time", "url", entry.URL, "error", err)
		}
	}
	return res
}
