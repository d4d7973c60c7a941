package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dinepos/api/internal/apperr"
	"github.com/google/uuid"
)

type memDoc struct {
	data json.RawMessage
	seq  int64
}

// Memory is an in-process Store used by tests and the memory backend.
type Memory struct {
	mu    sync.RWMutex
	cols  map[string]map[string]memDoc
	seq   int64
	watch *watchers
}

func NewMemory() *Memory {
	m := &Memory{cols: make(map[string]map[string]memDoc)}
	m.watch = newWatchers(m.List)
	return m
}

func (m *Memory) Get(ctx context.Context, path string) (Document, error) {
	col, id, err := Split(path)
	if err != nil {
		return Document{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.cols[col][id]
	if !ok {
		return Document{}, apperr.NotFound("document", path)
	}
	return Document{ID: id, Path: path, Data: d.data}, nil
}

func (m *Memory) Set(ctx context.Context, path string, data any) error {
	col, id, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	m.mu.Lock()
	m.put(col, id, raw)
	m.mu.Unlock()

	m.watch.notify(col)
	return nil
}

func (m *Memory) Insert(ctx context.Context, path string, data any) error {
	col, id, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	m.mu.Lock()
	if _, ok := m.cols[col][id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("insert %s: %w", path, apperr.ErrConflict)
	}
	m.put(col, id, raw)
	m.mu.Unlock()

	m.watch.notify(col)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	col, id, err := Split(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	d, ok := m.cols[col][id]
	if !ok {
		m.mu.Unlock()
		return apperr.NotFound("document", path)
	}
	merged, err := mergeFields(d.data, fields)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("merge %s: %w", path, err)
	}
	d.data = merged
	m.cols[col][id] = d
	m.mu.Unlock()

	m.watch.notify(col)
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	col, id, err := Split(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, ok := m.cols[col][id]; !ok {
		m.mu.Unlock()
		return apperr.NotFound("document", path)
	}
	delete(m.cols[col], id)
	if len(m.cols[col]) == 0 {
		delete(m.cols, col)
	}
	m.mu.Unlock()

	m.watch.notify(col)
	return nil
}

func (m *Memory) Create(ctx context.Context, collection string, data any) (string, error) {
	if !validCollection(collection) {
		return "", ErrInvalidPath
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.put(collection, id, raw)
	m.mu.Unlock()

	m.watch.notify(collection)
	return id, nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(collection, func(json.RawMessage) bool { return true }), nil
}

func (m *Memory) Where(ctx context.Context, collection, field, value string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(collection, func(data json.RawMessage) bool {
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return false
		}
		s, ok := obj[field].(string)
		return ok && s == value
	}), nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, fn func([]Document)) (func(), error) {
	if !validCollection(collection) {
		return nil, ErrInvalidPath
	}
	return m.watch.add(ctx, collection, fn), nil
}

func (m *Memory) Increment(ctx context.Context, path, field string, delta int64) (int64, error) {
	col, id, err := Split(path)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	obj := map[string]json.RawMessage{}
	if d, ok := m.cols[col][id]; ok {
		if err := json.Unmarshal(d.data, &obj); err != nil {
			m.mu.Unlock()
			return 0, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	var current int64
	if raw, ok := obj[field]; ok {
		if err := json.Unmarshal(raw, &current); err != nil {
			m.mu.Unlock()
			return 0, fmt.Errorf("decode %s.%s: %w", path, field, err)
		}
	}
	next := current + delta
	obj[field], _ = json.Marshal(next)
	raw, _ := json.Marshal(obj)
	m.put(col, id, raw)
	m.mu.Unlock()

	m.watch.notify(col)
	return next, nil
}

// put stores a document, keeping the original insertion position on
// replace. Callers hold m.mu.
func (m *Memory) put(col, id string, raw json.RawMessage) {
	if m.cols[col] == nil {
		m.cols[col] = make(map[string]memDoc)
	}
	d, ok := m.cols[col][id]
	if !ok {
		m.seq++
		d.seq = m.seq
	}
	d.data = raw
	m.cols[col][id] = d
}

func (m *Memory) sorted(col string, keep func(json.RawMessage) bool) []Document {
	type entry struct {
		id string
		d  memDoc
	}
	entries := make([]entry, 0, len(m.cols[col]))
	for id, d := range m.cols[col] {
		if keep(d.data) {
			entries = append(entries, entry{id, d})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].d.seq < entries[j].d.seq })

	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = Document{ID: e.id, Path: col + "/" + e.id, Data: e.d.data}
	}
	return docs
}
