package docstore

import (
	"context"
	"log/slog"
	"sync"
)

type lister func(ctx context.Context, collection string) ([]Document, error)

type watcher struct {
	kick chan struct{}
}

// watchers fans collection change signals out to subscriptions. Each
// subscription reloads the full collection on its own goroutine; a pending
// signal absorbs further ones so a slow subscriber sees the latest state
// instead of a backlog.
type watchers struct {
	list lister

	mu   sync.Mutex
	subs map[string]map[*watcher]struct{}
}

func newWatchers(list lister) *watchers {
	return &watchers{
		list: list,
		subs: make(map[string]map[*watcher]struct{}),
	}
}

func (w *watchers) add(ctx context.Context, collection string, fn func([]Document)) func() {
	ctx, cancel := context.WithCancel(ctx)
	wt := &watcher{kick: make(chan struct{}, 1)}

	w.mu.Lock()
	if w.subs[collection] == nil {
		w.subs[collection] = make(map[*watcher]struct{})
	}
	w.subs[collection][wt] = struct{}{}
	w.mu.Unlock()

	// initial snapshot
	wt.kick <- struct{}{}
	go w.run(ctx, collection, wt, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			w.remove(collection, wt)
		})
	}
}

func (w *watchers) run(ctx context.Context, collection string, wt *watcher, fn func([]Document)) {
	defer w.remove(collection, wt)
	for {
		select {
		case <-ctx.Done():
			return
		case <-wt.kick:
		}

		docs, err := w.list(ctx, collection)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// keep the last delivered snapshot; the next write retries
			slog.Warn("docstore: snapshot reload failed", "collection", collection, "error", err)
			continue
		}
		fn(docs)
	}
}

func (w *watchers) remove(collection string, wt *watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if subs, ok := w.subs[collection]; ok {
		delete(subs, wt)
		if len(subs) == 0 {
			delete(w.subs, collection)
		}
	}
}

func (w *watchers) notify(collection string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for wt := range w.subs[collection] {
		select {
		case wt.kick <- struct{}{}:
		default:
		}
	}
}

// notifyAll wakes every subscription, used after missed notifications.
func (w *watchers) notifyAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, subs := range w.subs {
		for wt := range subs {
			select {
			case wt.kick <- struct{}{}:
			default:
			}
		}
	}
}

func (w *watchers) count(collection string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs[collection])
}
