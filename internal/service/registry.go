package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"multi-timer/internal/model"
)

// Saver receives collections that must be written to the blob store.
type Saver interface {
	Enqueue(key string, value any)
}

// Loader reads the persisted collections back. Flush writes out anything
// still pending so a reload never reads older data than memory holds.
type Loader interface {
	Flush(ctx context.Context) error
	LoadTimers(ctx context.Context) ([]model.Timer, error)
	LoadHistory(ctx context.Context) ([]model.CompletionLogEntry, error)
}

// Event is published after every intent that changed state.
type Event struct {
	Action Action
	State  State
	Change Change
}

// Listener observes registry events. Listeners run synchronously in dispatch
// order and must not call Dispatch themselves.
type Listener func(Event)

// Registry owns the roster and the completion log. Every mutation goes through
// Dispatch, which serializes intents under one lock.
type Registry struct {
	mu    sync.Mutex
	state State
	saver Saver

	notifyMu  sync.Mutex
	listeners []Listener
}

func NewRegistry(saver Saver) *Registry {
	return &Registry{saver: saver}
}

// Subscribe registers a listener for subsequent events.
func (r *Registry) Subscribe(listener Listener) {
	r.notifyMu.Lock()
	r.listeners = append(r.listeners, listener)
	r.notifyMu.Unlock()
}

// Dispatch applies action and reports whether it changed anything. Unknown ids
// and transitions the state machine does not allow are silent no-ops.
func (r *Registry) Dispatch(action Action) bool {
	r.mu.Lock()
	return r.applyLocked(action)
}

// applyLocked reduces action with r.mu held and releases it.
func (r *Registry) applyLocked(action Action) bool {
	next, change := Reduce(r.state, action)
	if !change.Any() {
		r.mu.Unlock()
		return false
	}
	r.state = next
	r.persistLocked(change)

	// Take the notify lock before releasing state so listeners see events in
	// the order they were applied.
	r.notifyMu.Lock()
	r.mu.Unlock()
	defer r.notifyMu.Unlock()

	if action.Type != ActionTickTimer {
		log.Print(intentTrace(action))
	}
	event := Event{Action: action, State: next, Change: change}
	for _, listener := range r.listeners {
		listener(event)
	}
	return true
}

// Reload replaces the registry contents with the persisted roster and log.
// Pending writes are flushed first; if that fails memory stays authoritative
// and nothing is reloaded. Loaded timers are normalized to Idle. A failed read
// keeps the current contents for that collection.
func (r *Registry) Reload(ctx context.Context, loader Loader) {
	r.mu.Lock()
	if err := loader.Flush(ctx); err != nil {
		r.mu.Unlock()
		log.Printf("reload skipped, flush pending writes: %v", err)
		return
	}

	history, err := loader.LoadHistory(ctx)
	if err != nil {
		log.Printf("load history: %v", err)
	} else {
		r.state.History = NewHistoryLog(history)
	}

	timers, err := loader.LoadTimers(ctx)
	if err != nil {
		r.mu.Unlock()
		log.Printf("load timers: %v", err)
		return
	}
	log.Printf("[info] reloaded %d timers and %d history entries", len(timers), r.state.History.Len())
	r.applyLocked(UpdateTimers(normalizeLoaded(timers)))
}

// Snapshot returns the current state. The returned value is never mutated.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Timers returns a copy of the roster.
func (r *Registry) Timers() []model.Timer {
	return append([]model.Timer{}, r.Snapshot().Timers...)
}

// Timer looks a timer up by id.
func (r *Registry) Timer(id string) (model.Timer, bool) {
	for _, timer := range r.Snapshot().Timers {
		if timer.ID == id {
			return timer, true
		}
	}
	return model.Timer{}, false
}

// History returns the completion log in append order.
func (r *Registry) History() []model.CompletionLogEntry {
	return r.Snapshot().History.Entries()
}

// Groups returns the roster grouped by category.
func (r *Registry) Groups() []model.Group {
	return GroupByCategory(r.Snapshot().Timers)
}

func (r *Registry) persistLocked(change Change) {
	if r.saver == nil {
		return
	}
	if change.Roster {
		r.saver.Enqueue(KeyTimers, r.state.Timers)
	}
	if change.History {
		r.saver.Enqueue(KeyCompleted, r.state.History.Entries())
	}
}

func intentTrace(action Action) string {
	id, category := action.TimerID, action.Category
	if action.Type == ActionAddTimer {
		id, category = action.Timer.ID, action.Timer.Category
	}
	return fmt.Sprintf("[info] intent %s id=%q category=%q", action.Type, id, category)
}
