// Package download orchestrates a complete book download: metadata fetch
// and parse, optional cover fetch, synthesis of the introduction chapter,
// chapter task fan-out into the engine, incremental image discovery while
// chapter bodies arrive, the completion barrier, and final assembly into
// an EPUB or plain-text file.
//
// # Flow
//
//	mgr := download.NewManager(settings, logger)
//	mgr.OnProgress = func(class engine.Class, resolved, total int) { ... }
//	path, stats, err := mgr.Download(ctx, bookURL)
//
// Individual task failures never abort a run; the run completes with a
// partial book and the failure counts in Stats. Only metadata fetch
// failure (after its own small retry budget) fails the run outright.
package download
