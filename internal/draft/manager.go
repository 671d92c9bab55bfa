package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/shoplist/internal/model"
)

// ErrNotFound is returned for unknown, discarded or expired drafts.
var ErrNotFound = errors.New("draft not found")

// ListAdder is the part of the shopping store a submit needs.
type ListAdder interface {
	AddList(ctx context.Context, name, category string, items []model.ItemInput) (*model.ShoppingList, error)
}

// Manager keeps open drafts in memory, keyed by a random id. Drafts idle for
// longer than the TTL are treated as abandoned.
type Manager struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) expired(d *Draft) bool {
	return m.ttl > 0 && m.now().Sub(d.UpdatedAt) > m.ttl
}

// lookup returns a live draft; callers hold m.mu.
func (m *Manager) lookup(id string) (*Draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(d) {
		delete(m.drafts, id)
		return nil, ErrNotFound
	}
	return d, nil
}

// Create opens a new draft, optionally preselecting a category.
func (m *Manager) Create(category string) Draft {
	d := New(uuid.NewString(), category)
	d.UpdatedAt = m.now().UTC()

	m.mu.Lock()
	m.drafts[d.ID] = d
	m.mu.Unlock()
	return d.clone()
}

// Get returns a copy of the draft.
func (m *Manager) Get(id string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookup(id)
	if err != nil {
		return Draft{}, err
	}
	return d.clone(), nil
}

// Update runs fn against the draft while holding the manager lock and
// returns the resulting copy. An error from fn is returned as-is. Any update
// counts as activity and restarts the draft's TTL.
func (m *Manager) Update(id string, fn func(*Draft) error) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookup(id)
	if err != nil {
		return Draft{}, err
	}
	err = fn(d)
	d.UpdatedAt = m.now().UTC()
	return d.clone(), err
}

// Discard drops the draft, e.g. when the user navigates away.
func (m *Manager) Discard(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drafts[id]
	delete(m.drafts, id)
	return ok
}

// Submit validates the draft and, when valid, adds it to the store and
// discards it. On any failure the draft stays open unchanged.
func (m *Manager) Submit(ctx context.Context, id string, store ListAdder) (*model.ShoppingList, error) {
	m.mu.Lock()
	d, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if err := d.Validate(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	// Take the draft out so a concurrent submit cannot add it twice.
	delete(m.drafts, id)
	m.mu.Unlock()

	a := d.Action()
	list, err := store.AddList(ctx, a.Name, a.Category, a.Items)
	if err != nil {
		m.mu.Lock()
		m.drafts[id] = d
		m.mu.Unlock()
		return nil, err
	}
	return list, nil
}

// Cleanup removes expired drafts and returns how many were dropped.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, d := range m.drafts {
		if m.expired(d) {
			delete(m.drafts, id)
			n++
		}
	}
	return n
}

// Count returns the number of open drafts, expired ones included.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}
