package model

import (
	"fmt"
	"sync"
	"testing"
)

func TestChapterImages(t *testing.T) {
	ch := NewChapter("https://x/1.html", "第一章", 1)

	if ch.ImageCount() != 0 {
		t.Errorf("ImageCount() = %d, want 0", ch.ImageCount())
	}
	if _, ok := ch.Image("missing.png"); ok {
		t.Error("Image() found entry in empty chapter")
	}

	ch.SetImage("a.png", []byte{1, 2, 3})
	ch.SetImage("b.png", []byte{4})

	if ch.ImageCount() != 2 {
		t.Errorf("ImageCount() = %d, want 2", ch.ImageCount())
	}
	data, ok := ch.Image("a.png")
	if !ok || len(data) != 3 {
		t.Errorf("Image(a.png) = %v, %v", data, ok)
	}

	// Images() is a copy: mutating it must not touch the chapter.
	imgs := ch.Images()
	delete(imgs, "a.png")
	if ch.ImageCount() != 2 {
		t.Error("Images() returned the live map")
	}
}

func TestChapterConcurrentSetImage(t *testing.T) {
	ch := NewChapter("https://x/1.html", "第一章", 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch.SetImage(fmt.Sprintf("img%d.png", i), []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	if ch.ImageCount() != 50 {
		t.Errorf("ImageCount() = %d, want 50", ch.ImageCount())
	}
}

func TestBookHasCover(t *testing.T) {
	book := &Book{}
	if book.HasCover() {
		t.Error("HasCover() = true for book without cover URL")
	}
	book.CoverURL = "https://x/cover.jpg"
	if !book.HasCover() {
		t.Error("HasCover() = false for book with cover URL")
	}
}
