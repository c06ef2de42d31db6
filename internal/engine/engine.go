package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers      = 5
	defaultTaskTimeout  = 180 * time.Second
	defaultMaxRetries   = 2
	defaultMinFreeBytes = 200 << 20 // 200 MiB

	// degradeThreshold is the consecutive cross-task failure count above
	// which the engine falls back to a single effective worker.
	degradeThreshold = 5

	telemetryInterval = time.Second
	idleSleep         = 100 * time.Millisecond
	degradedIdle      = time.Second
	gateRetryInterval = 2 * time.Second
	completionPoll    = 500 * time.Millisecond
	joinTimeout       = time.Second
)

var defaultRetryDelays = []time.Duration{30 * time.Second, 60 * time.Second}

// ErrStopped is returned by WaitUntilComplete when the engine was stopped
// before both queues drained, letting callers tell "finished" apart from
// "stopped early".
var ErrStopped = errors.New("engine stopped before completion")

// Config carries engine tuning and the observation callbacks. All fields
// are read once at construction.
type Config struct {
	// Workers is the worker pool size. Defaults to 5.
	Workers int

	// TaskTimeout bounds a single task execution. Defaults to 180s.
	TaskTimeout time.Duration

	// MaxRetries is how many times a failing task is requeued before it
	// is declared permanently failed. Defaults to 2.
	MaxRetries int

	// RetryDelays is the ordered delay table indexed by retry count
	// (clamped to the last entry). Defaults to [30s, 60s].
	RetryDelays []time.Duration

	// GatePath is the filesystem location checked by the disk gate.
	// Defaults to ".".
	GatePath string

	// MinFreeBytes is the disk gate threshold. Defaults to 200 MiB.
	MinFreeBytes uint64

	// OnProgress is invoked on every completion-count change with the
	// task class, resolved count and total count. It runs with the
	// engine's internal lock held and must not call back into the engine.
	OnProgress func(class Class, resolved, total int)

	// OnRateUpdate is invoked once per telemetry tick with a formatted
	// throughput string and the number of workers executing a task.
	OnRateUpdate func(rate string, active int)

	// Logger receives engine diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = defaultTaskTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if len(c.RetryDelays) == 0 {
		c.RetryDelays = defaultRetryDelays
	}
	if c.GatePath == "" {
		c.GatePath = "."
	}
	if c.MinFreeBytes == 0 {
		c.MinFreeBytes = defaultMinFreeBytes
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Engine is the download worker pool plus its policy objects. Create one
// per orchestration run; it is fully torn down by Stop.
type Engine struct {
	cfg  Config
	exec Executor
	log  *slog.Logger
	gate *DiskGate

	chapterQ fifo
	imageQ   fifo
	st       state

	runCtx    context.Context
	cancelRun context.CancelFunc
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
}

// New creates an engine executing tasks through exec. Zero-value Config
// fields fall back to the documented defaults.
func New(cfg Config, exec Executor) *Engine {
	cfg = cfg.withDefaults()
	runCtx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		exec:      exec,
		log:       cfg.Logger,
		gate:      NewDiskGate(cfg.GatePath, cfg.MinFreeBytes),
		runCtx:    runCtx,
		cancelRun: cancel,
		stopCh:    make(chan struct{}),
		timers:    make(map[*time.Timer]struct{}),
	}
}

// AddChapterTask enqueues a chapter task and bumps the chapter total.
func (e *Engine) AddChapterTask(t *ChapterTask) {
	e.st.mu.Lock()
	e.st.chapters.total++
	e.emitProgressLocked(ClassChapter)
	e.st.mu.Unlock()
	e.chapterQ.push(t)
}

// AddImageTasks enqueues a batch of image tasks. The image total is
// updated atomically for the whole batch so progress consumers never see
// a partially counted batch.
func (e *Engine) AddImageTasks(tasks []*ImageTask) {
	if len(tasks) == 0 {
		return
	}
	e.st.mu.Lock()
	e.st.images.total += len(tasks)
	e.emitProgressLocked(ClassImage)
	e.st.mu.Unlock()
	for _, t := range tasks {
		e.imageQ.push(t)
	}
}

// ReportBytes adds a completed network read to the throughput
// accumulator. Callbacks report payload size, not wire overhead.
func (e *Engine) ReportBytes(n int64) {
	e.st.mu.Lock()
	e.st.bytesDownloaded += n
	e.st.mu.Unlock()
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.st.snapshot()
}

// Degraded reports whether the engine is currently in degraded
// single-worker mode.
func (e *Engine) Degraded() bool {
	e.st.mu.Lock()
	defer e.st.mu.Unlock()
	return e.st.degraded
}

// Start launches the worker pool and the telemetry loop.
func (e *Engine) Start() {
	e.st.mu.Lock()
	e.st.startTime = time.Now()
	e.st.mu.Unlock()

	e.log.Info("starting download engine", "workers", e.cfg.Workers)
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.workerLoop(i)
	}
	e.wg.Add(1)
	go e.telemetryLoop()
}

// Stop signals all loops to exit, cancels pending retry timers, and joins
// the workers with a bounded timeout. It is safe to call multiple times
// and after Stop has already completed.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.cancelRun()

		e.timersMu.Lock()
		for timer := range e.timers {
			if timer.Stop() {
				e.st.mu.Lock()
				e.st.pendingRetries--
				e.st.mu.Unlock()
			}
			delete(e.timers, timer)
		}
		e.timersMu.Unlock()

		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(joinTimeout):
			e.log.Warn("timed out waiting for workers to exit")
		}
	})
}

// WaitUntilComplete blocks until both queues are empty, no task is in
// flight, and no retry is pending. It returns ErrStopped if the engine
// was stopped first and ctx.Err() if ctx is cancelled; it never stops the
// engine itself.
func (e *Engine) WaitUntilComplete(ctx context.Context) error {
	for {
		if e.quiescent() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return ErrStopped
		case <-time.After(completionPoll):
		}
	}
}

func (e *Engine) quiescent() bool {
	e.st.mu.Lock()
	defer e.st.mu.Unlock()
	return e.chapterQ.len() == 0 && e.imageQ.len() == 0 &&
		e.st.active == 0 && e.st.pendingRetries == 0
}

func (e *Engine) workerLoop(id int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		if err := e.gate.Check(); err != nil {
			e.log.Warn("pausing worker, disk space below threshold", "worker", id)
			if !e.sleep(gateRetryInterval) {
				return
			}
			continue
		}

		if e.idleWhileDegraded(id) {
			if !e.sleep(degradedIdle) {
				return
			}
			continue
		}

		// Claim active before popping so the completion barrier never
		// observes an empty queue while a task is mid-handoff.
		e.st.mu.Lock()
		e.st.active++
		e.st.mu.Unlock()

		t := e.chapterQ.tryPop()
		if t == nil {
			t = e.imageQ.tryPop()
		}
		if t == nil {
			e.st.mu.Lock()
			e.st.active--
			e.st.mu.Unlock()
			if !e.sleep(idleSleep) {
				return
			}
			continue
		}

		e.runTask(t)

		e.st.mu.Lock()
		e.st.active--
		e.st.mu.Unlock()
	}
}

// idleWhileDegraded reports whether this worker should sit out the
// current iteration. In degraded mode only worker 0 keeps executing.
func (e *Engine) idleWhileDegraded(id int) bool {
	if id == 0 {
		return false
	}
	e.st.mu.Lock()
	defer e.st.mu.Unlock()
	return e.st.degraded
}

func (e *Engine) runTask(t task) {
	ctx, cancel := context.WithTimeout(e.runCtx, e.cfg.TaskTimeout)
	defer cancel()

	var err error
	switch tk := t.(type) {
	case *ChapterTask:
		err = e.exec.ExecuteChapter(ctx, tk)
	case *ImageTask:
		err = e.exec.ExecuteImage(ctx, tk)
	default:
		err = fmt.Errorf("unknown task type %T", t)
	}

	if err != nil {
		e.log.Error("task failed", "class", t.class().String(), "ref", t.ref(), "error", err)
		e.handleFailure(t)
		return
	}

	e.st.mu.Lock()
	e.st.consecutiveErrors = 0
	if e.st.degraded {
		e.st.degraded = false
		e.st.mu.Unlock()
		e.log.Info("source recovered, resuming concurrent downloads")
		e.st.mu.Lock()
	}
	e.st.counters(t.class()).succeeded++
	e.emitProgressLocked(t.class())
	e.st.mu.Unlock()
}

func (e *Engine) handleFailure(t task) {
	e.st.mu.Lock()
	e.st.consecutiveErrors++
	if e.st.consecutiveErrors > degradeThreshold && !e.st.degraded {
		e.st.degraded = true
		e.st.mu.Unlock()
		e.log.Warn("too many consecutive failures, degrading to a single worker")
	} else {
		e.st.mu.Unlock()
	}

	if t.retryCount() < e.cfg.MaxRetries {
		e.scheduleRetry(t)
		return
	}

	e.log.Error("task permanently failed", "class", t.class().String(), "ref", t.ref())
	e.st.mu.Lock()
	e.st.counters(t.class()).failed++
	e.emitProgressLocked(t.class())
	e.st.mu.Unlock()
}

// scheduleRetry arms a one-shot timer that requeues the task after the
// class-agnostic table delay. The retry counter is bumped at requeue
// time, not here. Timers are registered so Stop can cancel them in bulk.
func (e *Engine) scheduleRetry(t task) {
	idx := t.retryCount()
	if idx >= len(e.cfg.RetryDelays) {
		idx = len(e.cfg.RetryDelays) - 1
	}
	delay := e.cfg.RetryDelays[idx]
	e.log.Info("retrying task", "class", t.class().String(), "ref", t.ref(),
		"attempt", t.retryCount()+1, "max", e.cfg.MaxRetries, "delay", delay)

	e.st.mu.Lock()
	e.st.pendingRetries++
	e.st.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		e.timersMu.Lock()
		delete(e.timers, timer)
		e.timersMu.Unlock()

		t.bumpRetry()
		switch tk := t.(type) {
		case *ChapterTask:
			e.chapterQ.push(tk)
		case *ImageTask:
			e.imageQ.push(tk)
		}

		e.st.mu.Lock()
		e.st.pendingRetries--
		e.st.mu.Unlock()
	})

	e.timersMu.Lock()
	e.timers[timer] = struct{}{}
	e.timersMu.Unlock()
}

func (e *Engine) emitProgressLocked(c Class) {
	if e.cfg.OnProgress == nil {
		return
	}
	ctr := e.st.counters(c)
	e.cfg.OnProgress(c, ctr.resolved(), ctr.total)
}

func (e *Engine) telemetryLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.cfg.OnRateUpdate == nil {
				continue
			}
			e.st.mu.Lock()
			rate := rateString(e.st.bytesDownloaded, time.Since(e.st.startTime))
			active := e.st.active
			e.st.mu.Unlock()
			e.cfg.OnRateUpdate(rate, active)
		}
	}
}

// sleep waits for d or until the engine is stopped. It returns false when
// the worker should exit.
func (e *Engine) sleep(d time.Duration) bool {
	select {
	case <-e.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

// rateString formats cumulative throughput since pool start.
func rateString(bytes int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "0 KB/s"
	}
	rate := float64(bytes) / 1024 / elapsed.Seconds()
	return fmt.Sprintf("%.1f KB/s", rate)
}
