package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/handiism/bookfetch/internal/engine"
	"github.com/handiism/bookfetch/internal/epub"
	"github.com/handiism/bookfetch/internal/model"
)

var invalidFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename strips characters that are invalid in filenames.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(invalidFilenameChars.ReplaceAllString(name, ""))
}

// bookID extracts the numeric/book identifier from a book URL, the last
// path segment without its .html suffix.
func bookID(url string) string {
	segment := url
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	return strings.TrimSuffix(segment, ".html")
}

// outputFilename applies the configured naming mode.
func (m *Manager) outputFilename(book *model.Book, url, ext string) string {
	if m.settings.Download.NamingMode == "number" {
		return bookID(url) + "." + ext
	}
	return SanitizeFilename(book.Title) + "." + ext
}

// resolveOutputPath decides where a file lands, creating the directory.
func (m *Manager) resolveOutputPath(url, filename string) (string, error) {
	baseDir := m.settings.Download.Dir
	if m.settings.Download.UseBookDir {
		baseDir = filepath.Join(baseDir, bookID(url))
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", baseDir, err)
	}
	return filepath.Join(baseDir, filename), nil
}

// Download fetches the book at url and assembles it into the configured
// output format, returning the written path.
func (m *Manager) Download(ctx context.Context, url string) (string, engine.Stats, error) {
	switch m.settings.Download.Format {
	case "txt":
		return m.DownloadTXT(ctx, url)
	default:
		return m.DownloadEPUB(ctx, url)
	}
}

// DownloadEPUB fetches the book with images and writes an EPUB.
func (m *Manager) DownloadEPUB(ctx context.Context, url string) (string, engine.Stats, error) {
	book, stats, err := m.FetchBook(ctx, url, m.settings.Download.Images)
	if err != nil {
		return "", stats, err
	}

	outPath, err := m.resolveOutputPath(url, m.outputFilename(book, url, "epub"))
	if err != nil {
		return "", stats, err
	}
	if err := epub.BuildFile(book, book.Chapters, outPath); err != nil {
		return "", stats, err
	}
	m.log.Info("epub written", "path", outPath)
	return outPath, stats, nil
}

// DownloadTXT fetches the book without images and writes plain text.
func (m *Manager) DownloadTXT(ctx context.Context, url string) (string, engine.Stats, error) {
	book, stats, err := m.FetchBook(ctx, url, false)
	if err != nil {
		return "", stats, err
	}

	outPath, err := m.resolveOutputPath(url, m.outputFilename(book, url, "txt"))
	if err != nil {
		return "", stats, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n%s\n\n", book.Title, book.Author, book.Introduction)
	for _, ch := range book.Chapters {
		b.WriteString(ch.Title + "\n")
		if ch.Text != "" {
			b.WriteString(ch.Text + "\n\n")
		}
	}
	if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
		return "", stats, fmt.Errorf("write txt: %w", err)
	}
	m.log.Info("txt written", "path", outPath)
	return outPath, stats, nil
}

// DownloadUpdates fetches only the chapters published after sinceTitle
// (exclusive) up to untilTitle (inclusive, empty for all) and writes
// them as a standalone EPUB. Used by the monitor flow.
func (m *Manager) DownloadUpdates(ctx context.Context, url, sinceTitle, untilTitle string) (string, engine.Stats, error) {
	book, targets, stats, err := m.fetch(ctx, url, fetchOptions{
		images:     m.settings.Download.Images,
		sinceTitle: sinceTitle,
		untilTitle: untilTitle,
	})
	if err != nil {
		return "", stats, err
	}
	if len(targets) == 0 {
		return "", stats, fmt.Errorf("no new chapters to download")
	}

	filename := SanitizeFilename(fmt.Sprintf("%s_更新_%d章", book.Title, len(targets))) + ".epub"
	outPath, err := m.resolveOutputPath(url, filename)
	if err != nil {
		return "", stats, err
	}
	if err := epub.BuildFile(book, targets, outPath); err != nil {
		return "", stats, err
	}
	m.log.Info("update epub written", "path", outPath, "chapters", len(targets))
	return outPath, stats, nil
}
