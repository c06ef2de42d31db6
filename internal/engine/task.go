package engine

import (
	"context"

	"github.com/handiism/bookfetch/internal/model"
)

// Class identifies which queue and counter set a task belongs to.
type Class int

const (
	// ClassChapter tasks fetch and parse a chapter body. They are
	// dequeued with priority over image tasks.
	ClassChapter Class = iota

	// ClassImage tasks fetch and normalize one embedded image.
	ClassImage
)

// String returns the class name used in logs and progress events.
func (c Class) String() string {
	if c == ClassChapter {
		return "chapter"
	}
	return "image"
}

// ChapterTask downloads one chapter body and stores it on its Chapter.
type ChapterTask struct {
	// URL is the chapter page to fetch.
	URL string

	// Chapter is the entity this task populates.
	Chapter *model.Chapter

	retries int
}

// ImageTask downloads one embedded image and stores it in its Chapter's
// image map under Filename. Filename is assigned before the task is
// enqueued, so the chapter body can reference it before the bytes exist
// and no two tasks ever share a map key.
type ImageTask struct {
	// URL is the image source to fetch.
	URL string

	// Chapter is the chapter the image belongs to.
	Chapter *model.Chapter

	// Filename is the pre-assigned destination name inside the chapter's
	// image map (and the assembled output).
	Filename string

	retries int
}

// Executor runs the site-specific work for each task kind. Implementations
// must be safe for concurrent calls: all workers may execute tasks at the
// same time.
type Executor interface {
	ExecuteChapter(ctx context.Context, task *ChapterTask) error
	ExecuteImage(ctx context.Context, task *ImageTask) error
}

// task is the queue-internal view of both task kinds.
type task interface {
	class() Class
	ref() string
	retryCount() int
	bumpRetry()
}

func (t *ChapterTask) class() Class    { return ClassChapter }
func (t *ChapterTask) ref() string     { return t.URL }
func (t *ChapterTask) retryCount() int { return t.retries }
func (t *ChapterTask) bumpRetry()      { t.retries++ }

func (t *ImageTask) class() Class    { return ClassImage }
func (t *ImageTask) ref() string     { return t.URL }
func (t *ImageTask) retryCount() int { return t.retries }
func (t *ImageTask) bumpRetry()      { t.retries++ }
