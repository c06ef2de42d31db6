// Package esjzone adapts the downloader to the esjzone.one novel site:
// parsing book detail pages, chapter bodies, and update status out of the
// site's markup, plus the login handshake and cookie validation.
//
// Everything here is a swappable adapter. The download engine and the
// orchestrator consume these parsers through narrow call sites and never
// touch markup themselves.
package esjzone
