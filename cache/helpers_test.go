package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

var errBoom = errors.New("boom")

func nopLogger() types.Logger {
	return logger.NewZapWrapper(zap.NewNop())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeExternal is an in-memory ExternalStore with switchable readiness and
// failure injection.
type fakeExternal struct {
	mu       sync.Mutex
	data     map[string][]byte
	ready    bool
	failing  bool
	panicky  bool
	calls    int
	deleted  [][]string
	globSeen []string
}

func newFakeExternal() *fakeExternal {
	return &fakeExternal{data: make(map[string][]byte), ready: true}
}

func (f *fakeExternal) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeExternal) enter() error {
	f.mu.Lock()
	f.calls++
	failing, panicky := f.failing, f.panicky
	f.mu.Unlock()

	if panicky {
		panic("external store exploded")
	}
	if failing {
		return errBoom
	}
	return nil
}

func (f *fakeExternal) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := f.enter(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeExternal) SetWithExpiry(_ context.Context, key string, value []byte, _ time.Duration) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeExternal) Delete(_ context.Context, key string) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeExternal) DeleteMany(_ context.Context, keys []string) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys)
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeExternal) KeysMatching(_ context.Context, glob string) ([]string, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globSeen = append(f.globSeen, glob)

	// The fake only understands the unescaped subset used in tests.
	p, err := CompilePattern(glob)
	if err != nil {
		return nil, err
	}

	var keys []string
	for key := range f.data {
		if p.Match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeExternal) FlushNamespace(context.Context) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make(map[string][]byte)
	return nil
}

func (f *fakeExternal) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeExternal) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
