package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"multi-timer/internal/model"
)

var errStoreDown = errors.New("store unavailable")

// memoryStore is an in-memory BlobStore that can be told to fail.
type memoryStore struct {
	mu        sync.Mutex
	data      map[string][]byte
	saves     map[string]int
	failSave  bool
	failLoad  bool
	saveCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte), saves: make(map[string]int)}
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return nil, false, errStoreDown
	}
	blob, ok := s.data[key]
	return blob, ok, nil
}

func (s *memoryStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.failSave {
		return errStoreDown
	}
	s.data[key] = append([]byte(nil), value...)
	s.saves[key]++
	return nil
}

func (s *memoryStore) setFailSave(fail bool) {
	s.mu.Lock()
	s.failSave = fail
	s.mu.Unlock()
}

func (s *memoryStore) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data[key])
}

// recordingSaver remembers which keys were enqueued.
type recordingSaver struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingSaver) Enqueue(key string, _ any) {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
}

func (s *recordingSaver) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.keys {
		if k == key {
			n++
		}
	}
	return n
}

// manualScheduler runs jobs only when the test calls tick.
type manualScheduler struct {
	mu      sync.Mutex
	entries []*manualEntry
}

type manualEntry struct {
	job       func()
	cancelled bool
}

func (s *manualScheduler) Every(_ time.Duration, job func()) (func(), error) {
	entry := &manualEntry{job: job}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		entry.cancelled = true
		s.mu.Unlock()
	}, nil
}

func (s *manualScheduler) active() []*manualEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualEntry
	for _, entry := range s.entries {
		if !entry.cancelled {
			out = append(out, entry)
		}
	}
	return out
}

// tick fires every live job once, like one elapsed second.
func (s *manualScheduler) tick() {
	for _, entry := range s.active() {
		entry.job()
	}
}

func (s *manualScheduler) ticks(n int) {
	for i := 0; i < n; i++ {
		s.tick()
	}
}

type failingScheduler struct{}

func (failingScheduler) Every(time.Duration, func()) (func(), error) {
	return nil, errors.New("scheduler closed")
}

var fixedNow = time.Date(2025, 3, 14, 21, 26, 53, 0, time.UTC)

// harness wires a registry, a clock on a manual scheduler and a persister over
// an in-memory store, the way main does.
type harness struct {
	store     *memoryStore
	persister *Persister
	registry  *Registry
	clock     *Clock
	scheduler *manualScheduler
	timers    *TimerService
}

func newHarness() *harness {
	store := newMemoryStore()
	persister := NewPersister(store)
	registry := NewRegistry(persister)
	scheduler := &manualScheduler{}
	clock := NewClock(registry, scheduler, ClockConfig{
		Now:   func() time.Time { return fixedNow },
		Stamp: StampFormatter(DefaultTimestampLayout, time.UTC),
	})
	registry.Subscribe(clock.Observe)
	return &harness{
		store:     store,
		persister: persister,
		registry:  registry,
		clock:     clock,
		scheduler: scheduler,
		timers:    NewTimerService(registry, persister),
	}
}

func (h *harness) create(name string, seconds string, category string) model.Timer {
	timer, err := h.timers.CreateTimer(TimerInput{Name: name, Duration: seconds, Category: category})
	if err != nil {
		panic(err)
	}
	return timer
}

func (h *harness) timer(id string) model.Timer {
	timer, ok := h.registry.Timer(id)
	if !ok {
		panic("timer " + id + " not found")
	}
	return timer
}

func newTimer(id, name, category string, duration int) model.Timer {
	timer := model.Timer{ID: id, Name: name, Category: category, Duration: duration, RemainingTime: duration}
	timer.SetStatus(model.StatusIdle)
	return timer
}

func withStatus(timer model.Timer, status model.Status, remaining int) model.Timer {
	timer.RemainingTime = remaining
	timer.SetStatus(status)
	return timer
}
