package indexer

import "sync"

// IndexLock admits one indexing run per Indexer and remembers which
// workspace holds it. The zero value is unlocked.
type IndexLock struct {
	mu   sync.Mutex
	root string
	held bool
}

// TryAcquire takes the lock for root without blocking. It reports false
// while another run holds it.
func (l *IndexLock) TryAcquire(root string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false
	}
	l.held, l.root = true, root
	return true
}

// Holder returns the workspace of the running index, "" when unlocked
func (l *IndexLock) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.root
}

// Release frees the lock; only the run that acquired it may call it
func (l *IndexLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held, l.root = false, ""
}
