package shopping

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dukerupert/shoplist/internal/model"
)

// Listener is called after every applied transition with the event and the
// new state. Listeners run on the store's writer goroutine, in subscription
// order, and must not block or call back into Dispatch.
type Listener func(Event, State)

type request struct {
	action Action
	reply  chan result
}

type result struct {
	event Event
	state State
	err   error
}

type subscription struct {
	id int
	fn Listener
}

// Store owns the shopping lists. All five transitions are serialised through
// a single writer goroutine; reads load the latest snapshot without waiting.
type Store struct {
	reducer  Reducer
	logger   *slog.Logger
	requests chan request
	state    atomic.Pointer[State]

	mu      sync.Mutex
	subs    []subscription
	nextSub int

	cancel context.CancelFunc
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

type Option func(*Store)

func WithIDPolicy(p IDPolicy) Option {
	return func(s *Store) { s.reducer.Policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithInitialState seeds the store, e.g. from a persisted snapshot.
func WithInitialState(st State) Option {
	return func(s *Store) {
		if st.Lists == nil {
			st.Lists = []model.ShoppingList{}
		}
		s.state.Store(&st)
	}
}

// New creates an empty store. Call Start before dispatching.
func New(opts ...Option) *Store {
	s := &Store{
		logger:   slog.Default(),
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.state.Store(&State{Lists: []model.ShoppingList{}})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the writer loop until ctx is cancelled or Stop is called.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		for {
			select {
			case req := <-s.requests:
				req.reply <- s.apply(req.action)
			case <-ctx.Done():
				s.once.Do(func() { close(s.quit) })
				return
			case <-s.quit:
				return
			}
		}
	}()
}

// Stop ends the writer loop and waits for it to exit. Later dispatches
// return ErrClosed.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.quit) })
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Store) apply(a Action) result {
	cur := *s.state.Load()
	next, ev, err := s.reducer.Reduce(cur, a)
	if err != nil {
		s.logger.Debug("transition rejected", "entity", ev.Entity, "action", ev.Action, "error", err)
		return result{event: ev, state: cur, err: err}
	}
	if !ev.Applied {
		s.logger.Debug("transition ignored", "entity", ev.Entity, "action", ev.Action, "list_id", ev.ListID, "item_id", ev.ItemID)
		return result{event: ev, state: cur}
	}

	s.state.Store(&next)
	s.logger.Info("transition applied", "entity", ev.Entity, "action", ev.Action, "list_id", ev.ListID, "item_id", ev.ItemID)

	s.mu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(ev, next)
	}
	return result{event: ev, state: next}
}

// Dispatch applies a through the writer loop and returns its event.
func (s *Store) Dispatch(ctx context.Context, a Action) (Event, error) {
	r, err := s.dispatch(ctx, a)
	if err != nil {
		return Event{}, err
	}
	return r.event, r.err
}

func (s *Store) dispatch(ctx context.Context, a Action) (result, error) {
	reply := make(chan result, 1)
	select {
	case s.requests <- request{action: a, reply: reply}:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-s.quit:
		return result{}, ErrClosed
	}
	// Once accepted the action always completes.
	return <-reply, nil
}

// Subscribe registers fn for future events and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current state. Its slices are shared with the store
// and must be treated as read-only; use Lists for an independent copy.
func (s *Store) Snapshot() State {
	return *s.state.Load()
}

// Lists returns a copy of every list in order.
func (s *Store) Lists() []model.ShoppingList {
	st := s.state.Load()
	out := make([]model.ShoppingList, len(st.Lists))
	for i, l := range st.Lists {
		out[i] = l.Clone()
	}
	return out
}

// List returns a copy of one list, or nil when no list has that id.
func (s *Store) List(id int64) *model.ShoppingList {
	return cloneList(FindList(s.state.Load().Lists, id))
}

// AddList appends a new list and returns it with its assigned ids.
func (s *Store) AddList(ctx context.Context, name, category string, items []model.ItemInput) (*model.ShoppingList, error) {
	r, err := s.dispatch(ctx, AddList{Name: name, Category: category, Items: items})
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return cloneList(FindList(r.state.Lists, r.event.ListID)), nil
}

// ToggleItemPurchased flips an item's purchased flag. It returns (nil, nil)
// when the list or item does not exist.
func (s *Store) ToggleItemPurchased(ctx context.Context, listID, itemID int64) (*model.Item, error) {
	return s.itemResult(ctx, ToggleItemPurchased{ListID: listID, ItemID: itemID})
}

// EditItem replaces an item's name and quantity. It returns (nil, nil) when
// the list or item does not exist.
func (s *Store) EditItem(ctx context.Context, listID, itemID int64, name string, quantity int) (*model.Item, error) {
	return s.itemResult(ctx, EditItem{ListID: listID, ItemID: itemID, Name: name, Quantity: quantity})
}

// DeleteItem removes one item and reports whether it existed.
func (s *Store) DeleteItem(ctx context.Context, listID, itemID int64) (bool, error) {
	ev, err := s.Dispatch(ctx, DeleteItem{ListID: listID, ItemID: itemID})
	return ev.Applied, err
}

// DeleteList removes a list with all its items and reports whether it existed.
func (s *Store) DeleteList(ctx context.Context, listID int64) (bool, error) {
	ev, err := s.Dispatch(ctx, DeleteList{ListID: listID})
	return ev.Applied, err
}

func (s *Store) itemResult(ctx context.Context, a Action) (*model.Item, error) {
	r, err := s.dispatch(ctx, a)
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if !r.event.Applied {
		return nil, nil
	}
	item := FindItem(FindList(r.state.Lists, r.event.ListID), r.event.ItemID)
	if item == nil {
		return nil, nil
	}
	it := *item
	return &it, nil
}

func cloneList(l *model.ShoppingList) *model.ShoppingList {
	if l == nil {
		return nil
	}
	c := l.Clone()
	return &c
}
