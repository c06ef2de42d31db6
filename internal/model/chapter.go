package model

import "sync"

// Chapter represents one chapter of a Book.
//
// Index is assigned at discovery and never reassigned. Title may be
// corrected once the chapter body is fetched (the listing sometimes
// carries a truncated title). HTML and Text are written exactly once by
// the chapter task that owns this chapter.
//
// The image map is written concurrently by the image tasks spawned for
// this chapter. Filenames are generated before those tasks are enqueued,
// so every task writes a distinct key, but Go maps are not safe for
// concurrent writes even to disjoint keys, hence the mutex.
type Chapter struct {
	// URL is the chapter page address.
	URL string

	// Title is the display title.
	Title string

	// Index is the stable ordinal position within the book. Index 0 is
	// the synthesized introduction chapter.
	Index int

	// SectionName and SectionIndex identify the volume/section grouping
	// the chapter belongs to, when the book page groups chapters.
	SectionName  string
	SectionIndex int

	// HTML is the rendered chapter body markup, Text the derived plain
	// text. Both are empty until the chapter task completes.
	HTML string
	Text string

	mu     sync.Mutex
	images map[string][]byte
}

// NewChapter creates a chapter discovered at the given ordinal index.
func NewChapter(url, title string, index int) *Chapter {
	return &Chapter{URL: url, Title: title, Index: index}
}

// SetImage stores downloaded image bytes under the pre-assigned filename.
// An entry, once written, is never overwritten: each filename belongs to
// exactly one image task.
func (c *Chapter) SetImage(filename string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.images == nil {
		c.images = make(map[string][]byte)
	}
	c.images[filename] = data
}

// Image returns the stored bytes for filename, if present.
func (c *Chapter) Image(filename string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.images[filename]
	return data, ok
}

// Images returns a copy of the image map.
func (c *Chapter) Images() map[string][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]byte, len(c.images))
	for k, v := range c.images {
		out[k] = v
	}
	return out
}

// ImageCount returns the number of stored images.
func (c *Chapter) ImageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}
