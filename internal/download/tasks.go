package download

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/handiism/bookfetch/internal/engine"
	"github.com/handiism/bookfetch/internal/epub"
	"github.com/handiism/bookfetch/internal/esjzone"
	"github.com/handiism/bookfetch/internal/imaging"
	"github.com/handiism/bookfetch/internal/model"
)

// run is the engine.Executor for one orchestration run. Workers call
// these methods concurrently.
type run struct {
	mgr    *Manager
	eng    *engine.Engine
	images bool
}

// ExecuteChapter fetches and parses one chapter body, discovers embedded
// images, enqueues one image task per distinct image (filenames assigned
// here, before enqueue), and stores the rewritten body on the chapter.
func (r *run) ExecuteChapter(ctx context.Context, t *engine.ChapterTask) error {
	body, err := r.mgr.client.Get(ctx, t.URL)
	if err != nil {
		return err
	}
	r.eng.ReportBytes(int64(len(body)))

	title, contentHTML, err := esjzone.ParseChapter(string(body), t.URL, t.Chapter.Title)
	if err != nil {
		return err
	}

	if r.images && contentHTML != "" {
		contentHTML, err = r.extractAndQueueImages(contentHTML, t.Chapter)
		if err != nil {
			return err
		}
	}

	t.Chapter.Title = title
	t.Chapter.HTML = contentHTML
	t.Chapter.Text = esjzone.PlainText(contentHTML)
	return nil
}

// ExecuteImage fetches one image, normalizes it, and stores it under the
// chapter's pre-assigned filename. GIF filenames keep the raw bytes so
// animations survive.
func (r *run) ExecuteImage(ctx context.Context, t *engine.ImageTask) error {
	data, err := r.mgr.client.Get(ctx, t.URL)
	if err != nil {
		return err
	}
	r.eng.ReportBytes(int64(len(data)))
	if len(data) == 0 {
		return fmt.Errorf("image download returned no data: %s", t.URL)
	}

	if !strings.HasSuffix(t.Filename, ".gif") {
		data, err = imaging.ToPNG(data)
		if err != nil {
			return err
		}
	}

	t.Chapter.SetImage(t.Filename, data)
	return nil
}

// extractAndQueueImages rewrites every resolvable <img> reference to a
// freshly generated local filename and enqueues the matching image tasks
// as a single batch, so the image total updates atomically.
func (r *run) extractAndQueueImages(contentHTML string, ch *model.Chapter) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return "", fmt.Errorf("parse chapter images: %w", err)
	}

	var tasks []*engine.ImageTask
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		if strings.HasPrefix(src, "images/") {
			// Already rewritten; nothing to fetch.
			return
		}

		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			if !strings.HasPrefix(src, "/") {
				r.mgr.log.Warn("skipping unresolvable image link", "src", src)
				return
			}
			src = esjzone.BaseURL + src
		}

		filename := imageFilename(src)
		img.SetAttr("src", "images/"+filename)
		tasks = append(tasks, &engine.ImageTask{URL: src, Chapter: ch, Filename: filename})
	})

	r.eng.AddImageTasks(tasks)

	rewritten, err := doc.Find("body").First().Html()
	if err != nil {
		return "", fmt.Errorf("render rewritten chapter: %w", err)
	}
	return rewritten, nil
}

// imageFilename generates the unique destination name for a remote
// image. The extension is decided here, before the bytes exist: GIF
// sources keep .gif (passthrough), everything else becomes .png.
func imageFilename(src string) string {
	ext := ".png"
	if strings.EqualFold(path.Ext(strings.SplitN(src, "?", 2)[0]), ".gif") {
		ext = ".gif"
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

// synthesizeIntro builds the chapter 0 introduction/table-of-contents
// page from already-fetched metadata. It needs no network access and
// always succeeds.
func synthesizeIntro(book *model.Book) *model.Chapter {
	var b strings.Builder

	if len(book.CoverImage) > 0 {
		fmt.Fprintf(&b, `<div style="text-align: center;"><img src="images/cover%s" alt="封面"/></div>`,
			epub.CoverExt(book.CoverImage))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "<h1>%s</h1>\n", epub.EscapeXML(book.Title))
	fmt.Fprintf(&b, "<p><strong>作者:</strong> %s</p>\n", epub.EscapeXML(book.Author))
	if len(book.Tags) > 0 {
		fmt.Fprintf(&b, "<p><strong>Tags:</strong> %s</p>\n", epub.EscapeXML(strings.Join(book.Tags, ", ")))
	}

	b.WriteString("<h3>简介</h3>\n")
	for _, line := range strings.Split(book.Introduction, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(&b, "<p>%s</p>\n", epub.EscapeXML(line))
		}
	}

	b.WriteString("<h3>目录</h3>\n<ul>\n")
	for _, ch := range book.Chapters {
		fmt.Fprintf(&b, `<li><a href="chapter_%d.xhtml">%s</a></li>%s`, ch.Index, epub.EscapeXML(ch.Title), "\n")
	}
	b.WriteString("</ul>")

	intro := model.NewChapter(book.URL, "书籍信息", 0)
	intro.HTML = b.String()
	intro.Text = fmt.Sprintf("%s\n作者: %s\nTags: %s\n\n简介:\n%s",
		book.Title, book.Author, strings.Join(book.Tags, ", "), book.Introduction)
	return intro
}
