package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/shopping"
)

type fakeAdder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAdder) AddList(ctx context.Context, name, category string, items []model.ItemInput) (*model.ShoppingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &model.ShoppingList{ID: int64(f.calls), Name: name, Category: category}, nil
}

func readyDraft(t *testing.T, m *Manager) string {
	t.Helper()
	d := m.Create("Groceries")
	_, err := m.Update(d.ID, func(d *Draft) error {
		d.SetName("Weekly")
		_, err := d.AddItem("Milk", 2)
		return err
	})
	if err != nil {
		t.Fatalf("prepare draft: %v", err)
	}
	return d.ID
}

func TestManagerCreateGetDiscard(t *testing.T) {
	m := NewManager(time.Hour)

	d := m.Create("Pantry")
	if d.ID == "" || d.Category != "Pantry" {
		t.Fatalf("created draft = %+v", d)
	}

	got, err := m.Get(d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("got id %q, want %q", got.ID, d.ID)
	}

	if !m.Discard(d.ID) {
		t.Error("discard reported missing draft")
	}
	if _, err := m.Get(d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after discard, got %v", err)
	}
	if m.Discard(d.ID) {
		t.Error("second discard should report false")
	}
}

func TestManagerGetReturnsCopy(t *testing.T) {
	m := NewManager(time.Hour)
	id := readyDraft(t, m)

	got, _ := m.Get(id)
	got.Items[0].Name = "Changed"

	again, _ := m.Get(id)
	if again.Items[0].Name != "Milk" {
		t.Errorf("draft mutated through copy: %+v", again.Items[0])
	}
}

func TestManagerSubmit(t *testing.T) {
	m := NewManager(time.Hour)
	adder := &fakeAdder{}
	id := readyDraft(t, m)

	list, err := m.Submit(context.Background(), id, adder)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if list.Name != "Weekly" || list.Category != "Groceries" {
		t.Errorf("list = %+v", list)
	}
	if _, err := m.Get(id); !errors.Is(err, ErrNotFound) {
		t.Error("draft should be discarded after submit")
	}
}

func TestManagerSubmitInvalidKeepsDraft(t *testing.T) {
	m := NewManager(time.Hour)
	adder := &fakeAdder{}
	d := m.Create("Groceries")

	_, err := m.Submit(context.Background(), d.ID, adder)
	var verr *shopping.ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name ValidationError, got %v", err)
	}
	if adder.calls != 0 {
		t.Error("invalid draft was dispatched")
	}
	if _, err := m.Get(d.ID); err != nil {
		t.Errorf("draft should remain open: %v", err)
	}
}

func TestManagerSubmitStoreErrorKeepsDraft(t *testing.T) {
	m := NewManager(time.Hour)
	adder := &fakeAdder{err: shopping.ErrClosed}
	id := readyDraft(t, m)

	if _, err := m.Submit(context.Background(), id, adder); !errors.Is(err, shopping.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := m.Get(id); err != nil {
		t.Errorf("draft should be restored: %v", err)
	}
}

func TestManagerConcurrentSubmitAddsOnce(t *testing.T) {
	m := NewManager(time.Hour)
	adder := &fakeAdder{}
	id := readyDraft(t, m)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Submit(context.Background(), id, adder)
		}()
	}
	wg.Wait()

	if adder.calls != 1 {
		t.Errorf("draft added %d times, want 1", adder.calls)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale := m.Create("")
	fresh := m.Create("")
	// Keep fresh alive by moving its timestamp forward.
	m.drafts[fresh.ID].UpdatedAt = now.Add(2 * time.Minute)

	now = now.Add(90 * time.Second)

	if _, err := m.Get(stale.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected stale draft to be expired, got %v", err)
	}
	if n := m.Cleanup(); n != 0 {
		t.Errorf("cleanup removed %d, want 0 (stale already dropped on access)", n)
	}
	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}

	now = now.Add(time.Hour)
	if n := m.Cleanup(); n != 1 {
		t.Errorf("cleanup removed %d, want 1", n)
	}
}

func TestManagerUpdateUsesManagerClock(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	d := m.Create("")
	now = now.Add(50 * time.Second)
	got, err := m.Update(d.ID, func(d *Draft) error {
		d.SetName("Weekly")
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}

	// 100s after creation but only 50s after the update.
	now = now.Add(50 * time.Second)
	if _, err := m.Get(d.ID); err != nil {
		t.Fatalf("draft expired despite recent update: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.Get(d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expiry a minute after the update, got %v", err)
	}
}

func TestManagerUpdateMissing(t *testing.T) {
	m := NewManager(time.Hour)
	_, err := m.Update("nope", func(d *Draft) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
