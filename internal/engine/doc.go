// Package engine implements the concurrent download engine: a pair of
// prioritized FIFO task queues, a fixed-size worker pool, a retry
// scheduler with a configurable delay table, an automatic degradation
// mode under sustained failure, a disk-space backpressure gate, and a
// periodic throughput reporter.
//
// The engine knows nothing about HTTP, HTML, or EPUBs. Tasks are typed
// (ChapterTask, ImageTask) and executed through the Executor interface
// supplied at construction, so the fetch pipeline lives entirely in the
// caller.
//
// # Lifecycle
//
//	eng := engine.New(cfg, executor)
//	for _, ch := range book.Chapters[1:] {
//	    eng.AddChapterTask(&engine.ChapterTask{URL: ch.URL, Chapter: ch})
//	}
//	eng.Start()
//	defer eng.Stop()
//	err := eng.WaitUntilComplete(ctx)
//
// Image tasks are typically enqueued from inside ExecuteChapter once a
// chapter body has been parsed for embedded images.
//
// # Accounting
//
// Every enqueued task resolves exactly once, to either success or
// permanent failure (retry budget exhausted). Progress callbacks report
// resolved counts, so at quiescence resolved == total for both task
// classes regardless of how many tasks failed.
package engine
