package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/handiism/bookfetch/internal/model"
)

func buildTestBook() *model.Book {
	book := &model.Book{
		URL:          "https://www.esjzone.one/detail/123.html",
		Title:        "测试书名",
		Author:       "某作者",
		Introduction: "一段简介",
		Tags:         []string{"奇幻"},
		CoverImage:   []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00},
	}

	ch1 := model.NewChapter("https://x/1.html", "第一章", 1)
	ch1.HTML = `<p>正文</p><img src="images/abc.png"/>`
	ch1.SetImage("abc.png", []byte("fake png bytes"))

	ch2 := model.NewChapter("https://x/2.html", "第二章", 2)
	ch2.HTML = `<p>第二章正文</p>`

	book.Chapters = []*model.Chapter{ch1, ch2}
	return book
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open built epub: %v", err)
	}
	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = string(content)
	}
	return entries
}

func TestBuild(t *testing.T) {
	book := buildTestBook()

	var buf bytes.Buffer
	if err := Build(book, book.Chapters, &buf); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	entries := readZip(t, buf.Bytes())

	if entries["mimetype"] != "application/epub+zip" {
		t.Errorf("mimetype entry = %q", entries["mimetype"])
	}
	for _, name := range []string{
		"META-INF/container.xml",
		"OEBPS/chapter_1.xhtml",
		"OEBPS/chapter_2.xhtml",
		"OEBPS/images/abc.png",
		"OEBPS/images/cover.jpg",
		"OEBPS/toc.ncx",
		"OEBPS/content.opf",
	} {
		if _, ok := entries[name]; !ok {
			t.Errorf("missing entry %s", name)
		}
	}

	if !strings.Contains(entries["OEBPS/chapter_1.xhtml"], "正文") {
		t.Errorf("chapter 1 body missing content")
	}
	opf := entries["OEBPS/content.opf"]
	if !strings.Contains(opf, "测试书名") || !strings.Contains(opf, "某作者") {
		t.Errorf("content.opf missing metadata: %s", opf)
	}
	if !strings.Contains(opf, `properties="cover-image"`) {
		t.Errorf("content.opf missing cover-image property")
	}
	if !strings.Contains(opf, "奇幻") {
		t.Errorf("content.opf missing tag subject")
	}
}

func TestBuild_MimetypeStoredFirst(t *testing.T) {
	book := buildTestBook()

	var buf bytes.Buffer
	if err := Build(book, book.Chapters, &buf); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open built epub: %v", err)
	}
	first := zr.File[0]
	if first.Name != "mimetype" {
		t.Errorf("first entry = %q, want mimetype", first.Name)
	}
	if first.Method != zip.Store {
		t.Errorf("mimetype method = %d, want Store", first.Method)
	}
}

func TestBuild_NoCover(t *testing.T) {
	book := buildTestBook()
	book.CoverImage = nil

	var buf bytes.Buffer
	if err := Build(book, book.Chapters, &buf); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	entries := readZip(t, buf.Bytes())
	if _, ok := entries["OEBPS/images/cover.jpg"]; ok {
		t.Error("cover entry present for coverless book")
	}
	if strings.Contains(entries["OEBPS/content.opf"], "cover-image") {
		t.Error("content.opf references a cover that does not exist")
	}
}

func TestCoverExt(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte{0xFF, 0xD8, 0xFF}, ".jpg"},
		{[]byte{0x89, 'P', 'N', 'G'}, ".png"},
		{nil, ".png"},
	}
	for _, tt := range tests {
		if got := CoverExt(tt.data); got != tt.want {
			t.Errorf("CoverExt(%v) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestEscapeXML(t *testing.T) {
	got := EscapeXML(`a & b < c > "d"`)
	want := "a &amp; b &lt; c &gt; &quot;d&quot;"
	if got != want {
		t.Errorf("EscapeXML() = %q, want %q", got, want)
	}
}
