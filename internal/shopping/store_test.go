package shopping

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/shoplist/internal/model"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(append([]Option{WithLogger(slog.Default())}, opts...)...)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s
}

func TestStoreLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.AddList(ctx, "Weekly Groceries", "Groceries", milk())
	if err != nil {
		t.Fatalf("add list: %v", err)
	}
	if list.ID != 1 || len(list.Items) != 1 || list.Items[0].ID != 1 {
		t.Fatalf("list = %+v", list)
	}

	item, err := s.ToggleItemPurchased(ctx, 1, 1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if item == nil || !item.Purchased {
		t.Fatalf("toggled item = %+v", item)
	}
	if got := s.List(1); got == nil || !IsListComplete(*got) {
		t.Errorf("list should be complete: %+v", got)
	}

	item, err = s.EditItem(ctx, 1, 1, "Oat Milk", 4)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if item.Name != "Oat Milk" || item.Quantity != 4 || !item.Purchased {
		t.Errorf("edited item = %+v", item)
	}

	deleted, err := s.DeleteItem(ctx, 1, 1)
	if err != nil || !deleted {
		t.Fatalf("delete item = %v, %v", deleted, err)
	}
	if got := s.List(1); len(got.Items) != 0 {
		t.Errorf("expected empty list, got %+v", got.Items)
	}

	deleted, err = s.DeleteList(ctx, 1)
	if err != nil || !deleted {
		t.Fatalf("delete list = %v, %v", deleted, err)
	}
	if lists := s.Lists(); len(lists) != 0 {
		t.Errorf("expected no lists, got %d", len(lists))
	}
}

func TestStoreNotFoundReturnsNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AddList(ctx, "Weekly", "Groceries", milk()); err != nil {
		t.Fatalf("add list: %v", err)
	}
	before := s.Lists()

	if item, err := s.ToggleItemPurchased(ctx, 1, 42); item != nil || err != nil {
		t.Errorf("toggle missing item = %+v, %v", item, err)
	}
	if item, err := s.EditItem(ctx, 7, 1, "X", 1); item != nil || err != nil {
		t.Errorf("edit missing list = %+v, %v", item, err)
	}
	if ok, err := s.DeleteItem(ctx, 1, 42); ok || err != nil {
		t.Errorf("delete missing item = %v, %v", ok, err)
	}
	if ok, err := s.DeleteList(ctx, 42); ok || err != nil {
		t.Errorf("delete missing list = %v, %v", ok, err)
	}

	after := s.Lists()
	if len(after) != 1 || len(after[0].Items) != len(before[0].Items) || after[0].Items[0] != before[0].Items[0] {
		t.Errorf("state changed: before %+v, after %+v", before, after)
	}
}

func TestStoreValidationError(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddList(context.Background(), "", "Groceries", milk())
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name ValidationError, got %v", err)
	}
	if len(s.Lists()) != 0 {
		t.Error("rejected list was stored")
	}
}

func TestStoreListsAreCopies(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddList(context.Background(), "Weekly", "Groceries", milk()); err != nil {
		t.Fatalf("add list: %v", err)
	}

	lists := s.Lists()
	lists[0].Items[0].Name = "Changed"
	one := s.List(1)
	one.Items[0].Quantity = 99

	got := s.List(1)
	if got.Items[0].Name != "Milk" || got.Items[0].Quantity != 2 {
		t.Errorf("store state mutated through a copy: %+v", got.Items[0])
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var events []Event
	cancel := s.Subscribe(func(ev Event, st State) {
		events = append(events, ev)
	})

	s.AddList(ctx, "Weekly", "Groceries", milk())
	s.ToggleItemPurchased(ctx, 1, 1)
	s.ToggleItemPurchased(ctx, 1, 9) // not found: no event
	cancel()
	s.DeleteList(ctx, 1)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Entity != EntityList || events[0].Action != ActionCreated || events[0].ListID != 1 {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[1].Entity != EntityItem || events[1].Action != ActionToggled || events[1].ItemID != 1 {
		t.Errorf("event[1] = %+v", events[1])
	}
}

func TestStoreInitialStateAndPolicy(t *testing.T) {
	initial := State{
		Lists:        []model.ShoppingList{{ID: 3, Name: "Old", Category: "Pantry", Items: []model.Item{{ID: 1, Name: "Rice", Quantity: 1}}}},
		LastIssuedID: 5,
	}
	s := newTestStore(t, WithInitialState(initial), WithIDPolicy(IDPolicyMonotonic))

	list, err := s.AddList(context.Background(), "New", "Pantry", milk())
	if err != nil {
		t.Fatalf("add list: %v", err)
	}
	if list.ID != 6 {
		t.Errorf("list id = %d, want 6", list.ID)
	}
}

func TestStoreConcurrentDispatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddList(ctx, "List", "Other Items", milk()); err != nil {
				t.Errorf("add list: %v", err)
			}
		}()
	}
	wg.Wait()

	lists := s.Lists()
	if len(lists) != 50 {
		t.Fatalf("expected 50 lists, got %d", len(lists))
	}
	for i, l := range lists {
		if l.ID != int64(i+1) {
			t.Fatalf("list %d has id %d", i, l.ID)
		}
	}
}

func TestStoreStopped(t *testing.T) {
	s := New()
	s.Start(context.Background())
	s.Stop()

	_, err := s.Dispatch(context.Background(), DeleteList{ListID: 1})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Stop is safe to call twice.
	s.Stop()
}

func TestStoreDispatchContextCancelled(t *testing.T) {
	s := New() // never started
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Dispatch(ctx, DeleteList{ListID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
