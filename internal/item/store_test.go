package item

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
	"github.com/hitoshi/taskhub/internal/repository"
)

// memStore はテスト用のインメモリストア。
// PostgreSQL実装と同じ絞り込み条件・並び順・一意制約を持つ。
type memStore[T model.Record] struct {
	mu    sync.Mutex
	clone func(T) T
	recs  map[string]T

	scanCalls  int
	createErr  error
	skipExists bool
}

func newMemStore[T model.Record](clone func(T) T) *memStore[T] {
	return &memStore[T]{clone: clone, recs: make(map[string]T)}
}

func (m *memStore[T]) Scan(_ context.Context, pred query.Predicate) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++

	var out []T
	for _, r := range m.recs {
		if pred.Match(r) {
			out = append(out, m.clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Base(), out[j].Base()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *memStore[T]) FindByID(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		var zero T
		return zero, repository.ErrNotFound
	}
	return m.clone(r), nil
}

func (m *memStore[T]) ExistsByOwnerAndTitle(_ context.Context, ownerID, title, excludeID string) (bool, error) {
	if m.skipExists {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflict(ownerID, title, excludeID), nil
}

func (m *memStore[T]) conflict(ownerID, title, excludeID string) bool {
	for id, r := range m.recs {
		b := r.Base()
		if id != excludeID && b.OwnerID == ownerID && b.Title == title {
			return true
		}
	}
	return false
}

func (m *memStore[T]) Create(_ context.Context, rec T) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := rec.Base()
	if m.conflict(b.OwnerID, b.Title, "") {
		return repository.ErrDuplicateTitle
	}
	m.recs[b.ID] = m.clone(rec)
	return nil
}

func (m *memStore[T]) Update(_ context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := rec.Base()
	if _, ok := m.recs[b.ID]; !ok {
		return repository.ErrNotFound
	}
	if m.conflict(b.OwnerID, b.Title, b.ID) {
		return repository.ErrDuplicateTitle
	}
	m.recs[b.ID] = m.clone(rec)
	return nil
}

func (m *memStore[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.recs, id)
	return nil
}

func cloneTask(t *model.Task) *model.Task {
	c := *t
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		c.AssignedTo = &v
	}
	return &c
}

func cloneBug(b *model.BugReport) *model.BugReport {
	c := *b
	return &c
}

func cloneNote(n *model.Note) *model.Note {
	c := *n
	return &c
}

// recordingSink は受け取ったイベントを保持する。
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Record(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}
	}
	return r.events[len(r.events)-1]
}

type mockUserFinder struct {
	users map[string]bool
}

func (m *mockUserFinder) FindByID(_ context.Context, id string) (*model.User, error) {
	if m.users[id] {
		return &model.User{ID: id}, nil
	}
	return nil, nil
}
