package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/codemerkle/internal/walker"
	"github.com/dshills/codemerkle/pkg/types"
)

var (
	// ErrWorkerCreate marks tasks that reached a worker without an engine
	ErrWorkerCreate = errors.New("worker creation failed")
	// ErrWorkerPanic marks tasks whose engine panicked
	ErrWorkerPanic = errors.New("worker panicked")
	// ErrTaskTimeout marks tasks that exceeded the task timeout
	ErrTaskTimeout = errors.New("task timed out")
)

// Status is the outcome of one task
type Status int

const (
	StatusPending Status = iota
	StatusOK
	StatusFailed
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// TaskResult is the message a worker reports for one file
type TaskResult struct {
	Index  int
	Path   string
	Status Status
	Chunks []types.Chunk
	Err    error
}

// Engine chunks one file. Implementations need not be safe for concurrent
// use; each worker owns one.
type Engine interface {
	ChunkFile(ctx context.Context, rec types.FileRecord, content string) []types.Chunk
	Close()
}

// EngineFactory creates a fresh Engine for a worker
type EngineFactory func() (Engine, error)

// chunkFile runs eng on one file, converting a panic into a failed result
func chunkFile(ctx context.Context, eng Engine, index int, f walker.ScannedFile) (res TaskResult) {
	res = TaskResult{Index: index, Path: f.Record.Path}
	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Chunks = nil
			res.Err = fmt.Errorf("%w: %v", ErrWorkerPanic, p)
		}
	}()
	res.Chunks = eng.ChunkFile(ctx, f.Record, f.Content)
	res.Status = StatusOK
	return res
}

// task is one chunking call running on its own goroutine so the worker can
// stop waiting when the timeout fires
type task struct {
	done chan TaskResult

	mu        sync.Mutex
	finished  bool
	abandoned bool
}

// startTask runs eng on f in the background. When the worker abandons the task
// the goroutine closes eng itself once the call returns.
func startTask(ctx context.Context, wg *sync.WaitGroup, eng Engine, index int, f walker.ScannedFile) *task {
	t := &task{done: make(chan TaskResult, 1)}
	wg.Add(1)
	go func() {
		defer wg.Done()
		res := chunkFile(ctx, eng, index, f)

		t.mu.Lock()
		t.finished = true
		abandoned := t.abandoned
		t.mu.Unlock()

		if abandoned {
			eng.Close()
			return
		}
		t.done <- res
	}()
	return t
}

// abandon gives up on the task. It reports false when the call had already
// finished, in which case the result is waiting on done and the engine is
// still the caller's.
func (t *task) abandon() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return false
	}
	t.abandoned = true
	return true
}
