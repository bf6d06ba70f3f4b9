package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/codemerkle/internal/walker"
	"github.com/dshills/codemerkle/pkg/types"
)

// Mode is the dispatch mode of a run
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// Downgrade reasons
const (
	ReasonFailures = "failures"
	ReasonMemory   = "memory"
)

// Report summarizes how a run was executed
type Report struct {
	StartMode       Mode   `json:"start_mode"`
	EndMode         Mode   `json:"end_mode"`
	DowngradeReason string `json:"downgrade_reason,omitempty"`
	Batches         int    `json:"batches"`
	Timeouts        int    `json:"timeouts"`
	WorkerFailures  int    `json:"worker_failures"`
	Fallbacks       int    `json:"fallbacks"`
	Failed          int    `json:"failed"`
}

// FileFailure is a file that produced no chunks on any code path
type FileFailure struct {
	Path string
	Err  error
}

// Result is the output of a run
type Result struct {
	Chunks []types.Chunk
	Failed []FileFailure
	Report Report
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithMemorySampler replaces the system memory sampler
func WithMemorySampler(s MemorySampler) Option {
	return func(d *Dispatcher) {
		d.sampler = s
	}
}

// Dispatcher orchestrates chunk extraction across files. A Dispatcher holds
// no per-run state and may be reused.
type Dispatcher struct {
	cfg     Config
	factory EngineFactory
	sampler MemorySampler
	logger  *zap.Logger

	// task goroutines, including abandoned ones that outlive their run
	tasks sync.WaitGroup
}

// New creates a Dispatcher. Zero config fields take their defaults.
func New(cfg Config, factory EngineFactory, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		cfg:     cfg.withDefaults(),
		factory: factory,
		sampler: NewSystemMemory(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run holds the state of one Process call
type run struct {
	d       *Dispatcher
	files   []walker.ScannedFile
	results []TaskResult
	mode    Mode
	report  Report

	failures       atomic.Int32
	timeouts       atomic.Int32
	workerFailures atomic.Int32

	syncEngine Engine
}

// Process chunks every file and returns the chunks in input order. Every
// file gets exactly one attempt in its mode plus at most one synchronous
// retry; files that still fail are listed in Result.Failed. Only context
// cancellation is returned as an error.
func (d *Dispatcher) Process(ctx context.Context, files []walker.ScannedFile) (*Result, error) {
	r := &run{
		d:       d,
		files:   files,
		results: make([]TaskResult, len(files)),
		mode:    ModeSequential,
	}
	if d.cfg.Concurrent {
		r.mode = ModeConcurrent
	}
	r.report.StartMode = r.mode
	defer r.close()

	for start := 0; start < len(files); start += d.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+d.cfg.BatchSize, len(files))
		r.report.Batches++

		if r.mode == ModeConcurrent {
			r.checkMemory("before batch")
		}
		// the memory check may have downgraded the run
		if r.mode == ModeConcurrent {
			r.concurrentBatch(ctx, start, end)
		}

		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			switch r.results[i].Status {
			case StatusPending:
				r.sequential(ctx, i)
			case StatusFailed, StatusTimeout:
				r.fallback(ctx, i)
			}
		}

		if r.mode == ModeConcurrent {
			r.checkMemory("after batch")
			if end < len(files) && d.cfg.BatchDelay > 0 {
				if err := sleep(ctx, d.cfg.BatchDelay); err != nil {
					return nil, err
				}
			}
		}
	}

	return r.finish(), nil
}

// concurrentBatch feeds files[start:end] to the worker pool. Tasks not
// dispatched because the run downgraded stay pending.
func (r *run) concurrentBatch(ctx context.Context, start, end int) {
	tasks := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.d.cfg.Workers; w++ {
		g.Go(func() error {
			r.worker(gctx, tasks)
			return nil
		})
	}

feed:
	for i := start; i < end; i++ {
		if r.tripped() {
			r.downgrade(ReasonFailures)
			break
		}
		select {
		case tasks <- i:
		case <-gctx.Done():
			break feed
		}
	}
	close(tasks)
	_ = g.Wait()

	if r.tripped() {
		r.downgrade(ReasonFailures)
	}
}

// worker processes tasks with its own engine, replacing the engine after a
// timeout or panic
func (r *run) worker(ctx context.Context, tasks <-chan int) {
	var eng Engine
	defer func() {
		if eng != nil {
			eng.Close()
		}
	}()

	for i := range tasks {
		f := r.files[i]
		if eng == nil {
			var err error
			if eng, err = r.d.factory(); err != nil {
				eng = nil
				r.d.logger.Warn("failed to create worker engine", zap.Error(err))
				r.workerFailures.Add(1)
				r.failures.Add(1)
				r.results[i] = TaskResult{
					Index:  i,
					Path:   f.Record.Path,
					Status: StatusFailed,
					Err:    fmt.Errorf("%w: %v", ErrWorkerCreate, err),
				}
				continue
			}
		}

		res, keep := r.runTask(ctx, eng, i, f)
		if !keep {
			eng = nil
		}
		r.results[i] = res

		switch res.Status {
		case StatusTimeout:
			r.timeouts.Add(1)
			r.failures.Add(1)
		case StatusFailed:
			if keep {
				eng.Close()
				eng = nil
			}
			r.workerFailures.Add(1)
			r.failures.Add(1)
		}
	}
}

// runTask runs one file under the task timeout. keep reports whether the
// worker still owns eng afterwards.
func (r *run) runTask(ctx context.Context, eng Engine, i int, f walker.ScannedFile) (TaskResult, bool) {
	tctx, cancel := context.WithTimeout(ctx, r.d.cfg.TaskTimeout)
	defer cancel()

	t := startTask(tctx, &r.d.tasks, eng, i, f)
	select {
	case res := <-t.done:
		return res, true
	case <-tctx.Done():
		keep := !t.abandon()
		if keep {
			// finished right at the deadline; the engine is still ours
			<-t.done
		}
		r.d.logger.Warn("task timed out",
			zap.String("path", f.Record.Path), zap.Duration("timeout", r.d.cfg.TaskTimeout))
		return TaskResult{
			Index:  i,
			Path:   f.Record.Path,
			Status: StatusTimeout,
			Err:    fmt.Errorf("%w after %s", ErrTaskTimeout, r.d.cfg.TaskTimeout),
		}, keep
	}
}

// sequential processes a file on the orchestrating goroutine
func (r *run) sequential(ctx context.Context, i int) {
	r.results[i] = r.syncChunk(ctx, i)
	if r.results[i].Status != StatusOK {
		r.fail(i)
	}
}

// fallback retries a failed concurrent task synchronously, exactly once
func (r *run) fallback(ctx context.Context, i int) {
	prev := r.results[i]
	r.report.Fallbacks++
	r.d.logger.Debug("retrying file synchronously",
		zap.String("path", prev.Path), zap.Stringer("status", prev.Status), zap.Error(prev.Err))

	r.results[i] = r.syncChunk(ctx, i)
	if r.results[i].Status != StatusOK {
		r.fail(i)
	}
}

func (r *run) syncChunk(ctx context.Context, i int) TaskResult {
	f := r.files[i]
	if r.syncEngine == nil {
		eng, err := r.d.factory()
		if err != nil {
			return TaskResult{
				Index:  i,
				Path:   f.Record.Path,
				Status: StatusFailed,
				Err:    fmt.Errorf("%w: %v", ErrWorkerCreate, err),
			}
		}
		r.syncEngine = eng
	}

	res := chunkFile(ctx, r.syncEngine, i, f)
	if res.Status != StatusOK {
		r.syncEngine.Close()
		r.syncEngine = nil
	}
	return res
}

func (r *run) fail(i int) {
	res := r.results[i]
	r.d.logger.Warn("failed to chunk file", zap.String("path", res.Path), zap.Error(res.Err))
	r.report.Failed++
}

func (r *run) tripped() bool {
	return int(r.failures.Load()) > r.d.cfg.FailureThreshold
}

func (r *run) downgrade(reason string) {
	if r.mode == ModeSequential {
		return
	}
	r.mode = ModeSequential
	r.report.DowngradeReason = reason
	r.d.logger.Warn("downgrading to sequential mode",
		zap.String("reason", reason), zap.Int32("failures", r.failures.Load()))
}

// checkMemory downgrades the run when heap usage crosses the threshold
func (r *run) checkMemory(stage string) {
	if r.d.sampler == nil {
		return
	}
	usage, err := r.d.sampler.Usage()
	if err != nil {
		r.d.logger.Debug("memory sample unavailable", zap.Error(err))
		return
	}
	if usage <= r.d.cfg.MemoryThreshold {
		return
	}
	r.d.logger.Warn("memory threshold exceeded",
		zap.String("stage", stage),
		zap.Float64("usage", usage),
		zap.Float64("threshold", r.d.cfg.MemoryThreshold))
	r.downgrade(ReasonMemory)
	runtime.GC()
}

// finish assembles chunks and failures in input order
func (r *run) finish() *Result {
	res := &Result{}
	for _, tr := range r.results {
		if tr.Status != StatusOK {
			res.Failed = append(res.Failed, FileFailure{Path: tr.Path, Err: tr.Err})
			continue
		}
		res.Chunks = append(res.Chunks, tr.Chunks...)
	}

	r.report.EndMode = r.mode
	r.report.Timeouts = int(r.timeouts.Load())
	r.report.WorkerFailures = int(r.workerFailures.Load())
	res.Report = r.report

	r.d.logger.Info("dispatch complete",
		zap.Int("files", len(r.files)),
		zap.Int("chunks", len(res.Chunks)),
		zap.String("start_mode", string(r.report.StartMode)),
		zap.String("end_mode", string(r.report.EndMode)),
		zap.Int("fallbacks", r.report.Fallbacks),
		zap.Int("failed", r.report.Failed))
	return res
}

// close releases the synchronous engine. Abandoned tasks are not waited
// for: each closes its own engine when the call finally returns.
func (r *run) close() {
	if r.syncEngine != nil {
		r.syncEngine.Close()
		r.syncEngine = nil
	}
}

// Wait blocks until every task goroutine started by earlier Process calls
// has returned, including tasks abandoned after a timeout, or until ctx is
// done. It must not run concurrently with Process.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("abandoned tasks still running", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
