// Package httpx wraps HTTP transport for the downloader: a cookie-jar
// client with a browser User-Agent, typed transport errors, and optional
// dumps of failed exchanges for debugging site changes.
//
// The client performs no retries. Retry policy belongs to the download
// engine (per-task) or the orchestrator (metadata/cover budgets).
package httpx
