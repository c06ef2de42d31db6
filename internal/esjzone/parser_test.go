package esjzone

import (
	"errors"
	"strings"
	"testing"
)

const bookPage = `
<html><body>
<div class="book-detail">
  <h2>异世界书名</h2>
</div>
<ul class="book-detail">
  <li>作者: <a href="/tags/someone/">某作者</a></li>
  <li>更新日期: 2026-08-01</li>
</ul>
<div class="product-gallery">
  <img src="/assets/img/cover.jpg"/>
</div>
<div class="description">
  <p>第一段简介。</p>
  <p>第二段简介。</p>
</div>
<section class="widget-tags m-t-20">
  <a class="tag" href="#">奇幻</a>
  <a class="tag" href="#">转生</a>
</section>
<div id="chapterList">
  <a href="/forum/1/1.html"><p>第一章 开始</p></a>
  <details>
    <summary>第一卷</summary>
    <a href="/forum/1/2.html"><p>第二章 旅途</p></a>
    <a href="/forum/1/3.html"><p>第三章 终点</p></a>
  </details>
  <p>外传</p>
  <a href="/forum/1/4.html">番外一</a>
</div>
</body></html>`

func TestParseBook(t *testing.T) {
	book, err := ParseBook(bookPage, "https://www.esjzone.one/detail/123.html")
	if err != nil {
		t.Fatalf("ParseBook() error = %v", err)
	}

	if book.Title != "异世界书名" {
		t.Errorf("Title = %q, want %q", book.Title, "异世界书名")
	}
	if book.Author != "某作者" {
		t.Errorf("Author = %q, want %q", book.Author, "某作者")
	}
	if book.UpdateTime != "2026-08-01" {
		t.Errorf("UpdateTime = %q, want %q", book.UpdateTime, "2026-08-01")
	}
	if book.CoverURL != "https://www.esjzone.one/assets/img/cover.jpg" {
		t.Errorf("CoverURL = %q", book.CoverURL)
	}
	if !strings.Contains(book.Introduction, "第一段简介。") || !strings.Contains(book.Introduction, "第二段简介。") {
		t.Errorf("Introduction = %q, missing paragraphs", book.Introduction)
	}
	if len(book.Tags) != 2 || book.Tags[0] != "奇幻" || book.Tags[1] != "转生" {
		t.Errorf("Tags = %v", book.Tags)
	}
}

func TestParseBook_ChapterList(t *testing.T) {
	book, err := ParseBook(bookPage, "https://www.esjzone.one/detail/123.html")
	if err != nil {
		t.Fatalf("ParseBook() error = %v", err)
	}

	if len(book.Chapters) != 4 {
		t.Fatalf("len(Chapters) = %d, want 4", len(book.Chapters))
	}

	tests := []struct {
		index        int
		title        string
		url          string
		sectionName  string
		sectionIndex int
	}{
		{1, "第一章 开始", "https://www.esjzone.one/forum/1/1.html", "", 0},
		{2, "第二章 旅途", "https://www.esjzone.one/forum/1/2.html", "第一卷", 1},
		{3, "第三章 终点", "https://www.esjzone.one/forum/1/3.html", "第一卷", 1},
		{4, "番外一", "https://www.esjzone.one/forum/1/4.html", "外传", 2},
	}
	for i, tt := range tests {
		ch := book.Chapters[i]
		if ch.Index != tt.index {
			t.Errorf("Chapters[%d].Index = %d, want %d", i, ch.Index, tt.index)
		}
		if ch.Title != tt.title {
			t.Errorf("Chapters[%d].Title = %q, want %q", i, ch.Title, tt.title)
		}
		if ch.URL != tt.url {
			t.Errorf("Chapters[%d].URL = %q, want %q", i, ch.URL, tt.url)
		}
		if ch.SectionName != tt.sectionName {
			t.Errorf("Chapters[%d].SectionName = %q, want %q", i, ch.SectionName, tt.sectionName)
		}
		if ch.SectionIndex != tt.sectionIndex {
			t.Errorf("Chapters[%d].SectionIndex = %d, want %d", i, ch.SectionIndex, tt.sectionIndex)
		}
	}
}

func TestParseBook_MissingTitle(t *testing.T) {
	_, err := ParseBook("<html><body><p>not a book page</p></body></html>", "https://example.com/x.html")
	if err == nil {
		t.Fatal("ParseBook() expected error for page without title anchor")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("ParseBook() error = %T, want *ParseError", err)
	}
	if pe.Anchor != ".book-detail h2" {
		t.Errorf("ParseError.Anchor = %q", pe.Anchor)
	}
}

func TestParseChapter(t *testing.T) {
	page := `
<html><body>
<div class="forum-content">
  <h3>站内公告</h3>
  <p>正文第一行。</p>
  <p>正文第二行。</p>
  <footer>页脚广告</footer>
</div>
</body></html>`

	title, body, err := ParseChapter(page, "https://www.esjzone.one/forum/1/1.html", "第一章")
	if err != nil {
		t.Fatalf("ParseChapter() error = %v", err)
	}
	if title != "第一章" {
		t.Errorf("title = %q, want %q", title, "第一章")
	}
	if !strings.Contains(body, "正文第一行。") {
		t.Errorf("body missing content: %q", body)
	}
	if strings.Contains(body, "站内公告") || strings.Contains(body, "页脚广告") {
		t.Errorf("body should drop h3/footer noise: %q", body)
	}
}

func TestParseChapter_NoContent(t *testing.T) {
	title, body, err := ParseChapter("<html><body></body></html>", "https://x/1.html", "")
	if err != nil {
		t.Fatalf("ParseChapter() error = %v", err)
	}
	if body != "" {
		t.Errorf("body = %q, want empty", body)
	}
	if title != "https://x/1.html" {
		t.Errorf("title = %q, want page URL fallback", title)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(bookPage, "https://www.esjzone.one/detail/123.html")
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if st.Title != "异世界书名" {
		t.Errorf("Title = %q", st.Title)
	}
	if st.LatestChapter != "番外一" {
		t.Errorf("LatestChapter = %q, want %q", st.LatestChapter, "番外一")
	}
	if st.UpdateTime != "2026-08-01" {
		t.Errorf("UpdateTime = %q", st.UpdateTime)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base string
		ref  string
		want string
	}{
		{"https://www.esjzone.one/detail/123.html", "/forum/1/1.html", "https://www.esjzone.one/forum/1/1.html"},
		{"https://www.esjzone.one/detail/123.html", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"https://www.esjzone.one/detail/123.html", "cover.jpg", "https://www.esjzone.one/detail/cover.jpg"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<div><p>第一行</p><p>第二行</p></div>`)
	if !strings.Contains(got, "第一行") || !strings.Contains(got, "第二行") {
		t.Errorf("PlainText() = %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("PlainText() leaked markup: %q", got)
	}
}
