package cache

import (
	"context"
	"sync"
)

// taskSet tracks detached writes so shutdown can wait for them. Unlike a
// WaitGroup it tolerates add racing with wait.
type taskSet struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (t *taskSet) add() {
	t.mu.Lock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()
}

func (t *taskSet) done() {
	t.mu.Lock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
	t.mu.Unlock()
}

func (t *taskSet) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

func (t *taskSet) wait(ctx context.Context) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
