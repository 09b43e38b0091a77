package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"multi-timer/internal/model"
)

func TestPersisterRoundTrip(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store)

	timers := []model.Timer{
		withStatus(newTimer("a", "Tea", "Kitchen", 180), model.StatusPaused, 120),
		newTimer("b", "Standup", "Office", 900),
	}
	history := []model.CompletionLogEntry{{Name: "Tea", CompletedAt: "3/14/2025, 9:26:53 PM"}}

	p.Enqueue(KeyTimers, timers)
	p.Enqueue(KeyCompleted, history)
	if err := p.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	gotTimers, err := p.LoadTimers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotTimers, timers) {
		t.Errorf("timers = %+v", gotTimers)
	}
	gotHistory, err := p.LoadHistory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotHistory, history) {
		t.Errorf("history = %+v", gotHistory)
	}
}

func TestPersisterUsesStableFieldNames(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store)

	p.Enqueue(KeyTimers, []model.Timer{withStatus(newTimer("a", "Tea", "Kitchen", 180), model.StatusRunning, 179)})
	if err := p.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	raw := store.get(KeyTimers)
	for _, field := range []string{`"id":"a"`, `"remainingTime":179`, `"status":"Running"`, `"isRunning":true`} {
		if !strings.Contains(raw, field) {
			t.Errorf("%s missing from %s", field, raw)
		}
	}
}

func TestPersisterMissingKeysAreEmpty(t *testing.T) {
	p := NewPersister(newMemoryStore())

	timers, err := p.LoadTimers(context.Background())
	if err != nil || len(timers) != 0 {
		t.Errorf("timers = %v, err = %v", timers, err)
	}
	history, err := p.LoadHistory(context.Background())
	if err != nil || len(history) != 0 {
		t.Errorf("history = %v, err = %v", history, err)
	}
}

func TestPersisterCorruptBlob(t *testing.T) {
	store := newMemoryStore()
	store.data[KeyTimers] = []byte("{not json")
	p := NewPersister(store)

	_, err := p.LoadTimers(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode timers") {
		t.Errorf("err = %v", err)
	}
}

func TestPersisterLoadError(t *testing.T) {
	store := newMemoryStore()
	store.failLoad = true
	p := NewPersister(store)

	if _, err := p.LoadHistory(context.Background()); !errors.Is(err, errStoreDown) {
		t.Errorf("err = %v", err)
	}
}

func TestPersisterCoalescesPendingWrites(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store)

	for i := 1; i <= 5; i++ {
		p.Enqueue(KeyCompleted, []model.CompletionLogEntry{{Name: strings.Repeat("x", i)}})
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	if store.saves[KeyCompleted] != 1 {
		t.Errorf("saves = %d, want 1", store.saves[KeyCompleted])
	}
	if got := store.get(KeyCompleted); !strings.Contains(got, `"xxxxx"`) {
		t.Errorf("stored %s, want latest value", got)
	}
}

func TestPersisterKeepsFailedValueUntilSaved(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store)

	store.setFailSave(true)
	p.Enqueue(KeyTimers, []model.Timer{newTimer("a", "Tea", "C", 10)})
	if err := p.Flush(context.Background()); !errors.Is(err, errStoreDown) {
		t.Fatalf("flush err = %v", err)
	}
	if err := p.Flush(context.Background()); !errors.Is(err, errStoreDown) {
		t.Fatalf("second flush err = %v, want the value still pending", err)
	}

	store.setFailSave(false)
	if err := p.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	timers, err := p.LoadTimers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(timers) != 1 || timers[0].ID != "a" {
		t.Errorf("timers = %+v", timers)
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Errorf("nothing should be pending: %v", err)
	}
}

func TestPersisterNewerValueReplacesFailedOne(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store)

	store.setFailSave(true)
	p.Enqueue(KeyTimers, []model.Timer{newTimer("a", "Old", "C", 10)})
	if err := p.Flush(context.Background()); err == nil {
		t.Fatal("expected failure")
	}

	store.setFailSave(false)
	p.Enqueue(KeyTimers, []model.Timer{newTimer("b", "New", "C", 10)})
	if err := p.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	if store.saves[KeyTimers] != 1 {
		t.Errorf("saves = %d, want 1", store.saves[KeyTimers])
	}
	timers, err := p.LoadTimers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(timers) != 1 || timers[0].ID != "b" {
		t.Errorf("timers = %+v", timers)
	}
}

func TestPersisterBackgroundWriter(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store)
	p.Start()

	p.Enqueue(KeyTimers, []model.Timer{newTimer("a", "Tea", "Kitchen", 60)})

	deadline := time.Now().Add(2 * time.Second)
	for store.get(KeyTimers) == "" {
		if time.Now().After(deadline) {
			t.Fatal("background writer never saved")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.Enqueue(KeyCompleted, []model.CompletionLogEntry{{Name: "Tea"}})
	if err := p.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.get(KeyCompleted) == "" {
		t.Error("close did not flush pending writes")
	}
}

func TestRegistryWritesThroughPersister(t *testing.T) {
	h := newHarness()
	tea := h.create("Tea", "3", "Kitchen")
	h.timers.Start(tea.ID)
	h.scheduler.ticks(3)

	if err := h.persister.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.store.get(KeyTimers), `"status":"Completed"`) {
		t.Errorf("timers blob = %s", h.store.get(KeyTimers))
	}
	if !strings.Contains(h.store.get(KeyCompleted), `"name":"Tea"`) {
		t.Errorf("history blob = %s", h.store.get(KeyCompleted))
	}
}
