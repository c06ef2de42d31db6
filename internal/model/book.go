package model

// Book represents a single book on the source site, with its metadata and
// ordered chapter list.
//
// A Book is created by parsing the book detail page, mutated by worker
// callbacks while chapters and images download, and then handed read-only
// to the serializer.
type Book struct {
	// URL is the book detail page the metadata was parsed from.
	URL string

	// Title is the book title.
	Title string

	// Author is the book author, or "Unknown Author" if the page does
	// not carry one.
	Author string

	// Introduction is the free-text synopsis from the detail page.
	Introduction string

	// CoverURL is the cover image source, empty if none was found.
	CoverURL string

	// CoverImage holds the downloaded (and normalized) cover bytes.
	// Nil when the cover was skipped or its download failed.
	CoverImage []byte

	// UpdateTime is the last-update timestamp text from the detail page.
	UpdateTime string

	// Tags are the subject tags from the detail page.
	Tags []string

	// Chapters is the ordered chapter list. Index 0 is reserved for the
	// synthesized introduction/table-of-contents chapter, inserted after
	// metadata parsing and before any download task is enqueued.
	Chapters []*Chapter
}

// HasCover reports whether a cover image URL was found on the detail page.
func (b *Book) HasCover() bool {
	return b.CoverURL != ""
}
