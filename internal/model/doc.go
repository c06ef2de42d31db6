// Package model defines the core domain types shared across the
// downloader: a Book and its ordered Chapters.
//
// Chapters are created once when the book page is parsed and their Index
// never changes afterwards; the final reading order of the assembled
// output is determined solely by Index, never by download completion
// order. During the concurrent download phase a chapter's body is written
// exactly once by its owning chapter task, while its embedded images are
// written by separate image tasks under pre-assigned filenames.
package model
