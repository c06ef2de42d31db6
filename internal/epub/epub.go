// Package epub assembles a fully populated Book into an EPUB 3
// container. It consumes the Book and Chapter sequence read-only.
package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/handiism/bookfetch/internal/model"
)

// CoverExt sniffs the filename extension matching cover bytes. The cover
// is always either JPEG (kept as-is) or PNG (normalized).
func CoverExt(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return ".jpg"
	}
	return ".png"
}

// BuildFile writes the assembled EPUB to outputPath.
func BuildFile(book *model.Book, chapters []*model.Chapter, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create epub: %w", err)
	}
	defer f.Close()

	if err := Build(book, chapters, f); err != nil {
		return err
	}
	return f.Close()
}

// Build writes the EPUB container for book to w, with chapters in the
// order given. Chapter file names are derived from the immutable ordinal
// index, so the reading order is independent of download completion
// order.
func Build(book *model.Book, chapters []*model.Chapter, w io.Writer) error {
	zw := zip.NewWriter(w)

	// The mimetype entry must be first and stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return err
	}

	if err := writeEntry(zw, "META-INF/container.xml", containerXML); err != nil {
		return err
	}

	bookID := uuid.NewString()
	var manifest, spine []string
	images := make(map[string][]byte)
	var imageOrder []string

	for _, ch := range chapters {
		for filename, content := range ch.Images() {
			if _, seen := images[filename]; !seen {
				images[filename] = content
				imageOrder = append(imageOrder, filename)
			}
		}

		spine = append(spine, fmt.Sprintf(`<itemref idref="chap%d"/>`, ch.Index))
		manifest = append(manifest, fmt.Sprintf(
			`<item id="chap%d" href="chapter_%d.xhtml" media-type="application/xhtml+xml"/>`,
			ch.Index, ch.Index))

		if err := writeEntry(zw, fmt.Sprintf("OEBPS/chapter_%d.xhtml", ch.Index), chapterXHTML(ch)); err != nil {
			return err
		}
	}

	coverID := ""
	if len(book.CoverImage) > 0 {
		ext := CoverExt(book.CoverImage)
		if err := writeEntryBytes(zw, "OEBPS/images/cover"+ext, book.CoverImage); err != nil {
			return err
		}
		coverID = "cover_img"
		manifest = append(manifest, fmt.Sprintf(
			`<item id="%s" href="images/cover%s" media-type="%s" properties="cover-image"/>`,
			coverID, ext, mimeForExt(ext)))
	}

	for _, filename := range imageOrder {
		if err := writeEntryBytes(zw, "OEBPS/images/"+filename, images[filename]); err != nil {
			return err
		}
		manifest = append(manifest, fmt.Sprintf(
			`<item id="img_%s" href="images/%s" media-type="%s"/>`,
			strings.ReplaceAll(filename, ".", "_"), filename, mimeForExt(path.Ext(filename))))
	}

	if err := writeEntry(zw, "OEBPS/toc.ncx", tocNCX(book, chapters, bookID)); err != nil {
		return err
	}
	manifest = append(manifest, `<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`)

	if err := writeEntry(zw, "OEBPS/content.opf", contentOPF(book, bookID, coverID, manifest, spine)); err != nil {
		return err
	}

	return zw.Close()
}

const containerXML = `<?xml version="1.0" encoding="utf-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

func chapterXHTML(ch *model.Chapter) string {
	title := ch.Title
	if title == "" {
		title = fmt.Sprintf("第 %d 章", ch.Index)
	}
	body := ch.HTML
	if body == "" {
		body = "<p></p>"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
  <head>
    <title>%s</title>
    <meta charset="utf-8" />
  </head>
  <body>
    <h1>%s</h1>
    %s
  </body>
</html>
`, EscapeXML(title), EscapeXML(title), body)
}

func tocNCX(book *model.Book, chapters []*model.Chapter, bookID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="%s"/>
    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
  <docTitle>
    <text>%s</text>
  </docTitle>
  <navMap>
`, bookID, EscapeXML(book.Title))
	for i, ch := range chapters {
		fmt.Fprintf(&b, `    <navPoint id="navPoint-%d" playOrder="%d">
      <navLabel>
        <text>%s</text>
      </navLabel>
      <content src="chapter_%d.xhtml"/>
    </navPoint>
`, i+1, i+1, EscapeXML(ch.Title), ch.Index)
	}
	b.WriteString("  </navMap>\n</ncx>\n")
	return b.String()
}

func contentOPF(book *model.Book, bookID, coverID string, manifest, spine []string) string {
	var tags strings.Builder
	for _, tag := range book.Tags {
		fmt.Fprintf(&tags, "    <dc:subject>%s</dc:subject>\n", EscapeXML(tag))
	}

	description := ""
	if book.Introduction != "" {
		description = fmt.Sprintf("    <dc:description>%s</dc:description>\n", EscapeXML(book.Introduction))
	}
	coverMeta := ""
	if coverID != "" {
		coverMeta = fmt.Sprintf(`    <meta name="cover" content="%s" />%s`, coverID, "\n")
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">%s</dc:identifier>
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>zh</dc:language>
    <meta property="dcterms:modified">%s</meta>
%s%s%s  </metadata>
  <manifest>
    %s
  </manifest>
  <spine toc="ncx">
    %s
  </spine>
</package>
`, bookID, EscapeXML(book.Title), EscapeXML(book.Author),
		time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		tags.String(), description, coverMeta,
		strings.Join(manifest, "\n    "), strings.Join(spine, "\n    "))
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// EscapeXML escapes text for embedding in the container's XML documents.
func EscapeXML(text string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(text)
}

func writeEntry(zw *zip.Writer, name, content string) error {
	return writeEntryBytes(zw, name, []byte(content))
}

func writeEntryBytes(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
