package esjzone

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/handiism/bookfetch/internal/model"
)

// ParseError reports that a required structural anchor is missing from
// fetched markup, usually meaning the site changed its layout or returned
// an error page.
type ParseError struct {
	Anchor string
	URL    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot locate %s in page %s", e.Anchor, e.URL)
}

// Status is the lightweight update summary used by the monitor.
type Status struct {
	Title         string
	LatestChapter string
	UpdateTime    string
}

// ParseBook extracts book metadata and the chapter list from a book
// detail page. Chapter ordinal indices start at 1 and follow document
// order; index 0 is reserved for the synthesized introduction chapter.
func ParseBook(html, pageURL string) (*model.Book, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse book page: %w", err)
	}

	titleNode := doc.Find(".book-detail h2").First()
	if titleNode.Length() == 0 {
		return nil, &ParseError{Anchor: ".book-detail h2", URL: pageURL}
	}

	book := &model.Book{
		URL:    pageURL,
		Title:  strings.TrimSpace(titleNode.Text()),
		Author: "Unknown Author",
	}

	doc.Find("ul.book-detail li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := li.Text()
		switch {
		case strings.Contains(text, "作者:"):
			if a := li.Find("a").First(); a.Length() > 0 {
				book.Author = strings.TrimSpace(a.Text())
			}
			return true
		case strings.Contains(text, "更新日期:"):
			book.UpdateTime = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "更新日期:"))
			return true
		}
		return true
	})

	intro := doc.Find(".description").First()
	if intro.Length() == 0 {
		intro = doc.Find(".book-description").First()
	}
	if intro.Length() > 0 {
		book.Introduction = blockText(intro)
	}

	cover := doc.Find(".product-gallery img").First()
	if cover.Length() == 0 {
		cover = doc.Find(".book-detail img").First()
	}
	if src, ok := cover.Attr("src"); ok && src != "" {
		book.CoverURL = ResolveURL(pageURL, src)
	}

	doc.Find("section.widget-tags.m-t-20 a.tag").Each(func(_ int, a *goquery.Selection) {
		book.Tags = append(book.Tags, strings.TrimSpace(a.Text()))
	})
	if len(book.Tags) == 0 {
		doc.Find(".widget-tags a.tag").Each(func(_ int, a *goquery.Selection) {
			book.Tags = append(book.Tags, strings.TrimSpace(a.Text()))
		})
	}

	parseChapterList(doc, pageURL, book)
	return book, nil
}

// parseChapterList walks #chapterList's direct children in document
// order: bare links are chapters, <details> blocks group chapters under a
// section, bare <p> nodes open a new unforeseen section.
func parseChapterList(doc *goquery.Document, pageURL string, book *model.Book) {
	container := doc.Find("#chapterList").First()
	if container.Length() == 0 {
		return
	}

	index := 0
	sectionIndex := 0
	sectionName := ""

	addChapter := func(a *goquery.Selection) {
		index++
		ch := model.NewChapter(
			ResolveURL(pageURL, a.AttrOr("href", "")),
			chapterTitle(a),
			index,
		)
		ch.SectionName = sectionName
		ch.SectionIndex = sectionIndex
		book.Chapters = append(book.Chapters, ch)
	}

	container.Children().Each(func(_ int, node *goquery.Selection) {
		switch goquery.NodeName(node) {
		case "a":
			addChapter(node)
		case "details":
			sectionName = strings.TrimSpace(node.Find("summary").First().Text())
			sectionIndex++
			node.Find("a").Each(func(_ int, a *goquery.Selection) {
				addChapter(a)
			})
		case "p":
			sectionName = strings.TrimSpace(node.Text())
			sectionIndex++
		}
	})
}

// chapterTitle prefers the <p> inside a chapter link, falling back to the
// link text itself.
func chapterTitle(a *goquery.Selection) string {
	if p := a.Find("p").First(); p.Length() > 0 {
		return strings.TrimSpace(p.Text())
	}
	return strings.TrimSpace(a.Text())
}

// ParseChapter extracts the chapter body markup from a chapter page. The
// returned title is the fallback for now (the listing title is usually
// authoritative); an empty body with a nil error means the page had no
// recognizable content container.
func ParseChapter(html, pageURL, fallbackTitle string) (title, bodyHTML string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse chapter page: %w", err)
	}

	title = fallbackTitle
	if title == "" {
		title = pageURL
	}

	content := doc.Find(".forum-content").First()
	if content.Length() == 0 {
		return title, "", nil
	}

	content.Find("h3, footer").Remove()

	bodyHTML, err = goquery.OuterHtml(content)
	if err != nil {
		return "", "", fmt.Errorf("render chapter body: %w", err)
	}
	return title, bodyHTML, nil
}

// ParseStatus extracts the update summary from a book detail page.
func ParseStatus(html, pageURL string) (*Status, error) {
	book, err := ParseBook(html, pageURL)
	if err != nil {
		return nil, err
	}
	st := &Status{Title: book.Title, UpdateTime: book.UpdateTime}
	if n := len(book.Chapters); n > 0 {
		st.LatestChapter = book.Chapters[n-1].Title
	}
	return st, nil
}

// ResolveURL resolves ref against base, returning ref unchanged when it
// is already absolute or base is unparsable.
func ResolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
