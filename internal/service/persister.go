package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"multi-timer/internal/model"
)

// Storage keys of the two persisted collections.
const (
	KeyTimers    = "timers"
	KeyCompleted = "completedTimers"
)

// BlobStore is the external key/value store the persister writes through.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Persister encodes collections as JSON and writes them in the background.
// Only the latest value per key is kept. A failed write stays pending until it
// succeeds or a newer value for the same key replaces it.
type Persister struct {
	store BlobStore

	mu      sync.Mutex
	pending map[string][]byte
	order   []string

	writeMu sync.Mutex
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func NewPersister(store BlobStore) *Persister {
	return &Persister{
		store:   store,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the background writer.
func (p *Persister) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.run()
}

// Close stops the writer and flushes whatever is still pending.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	running := p.running
	p.running = false
	p.mu.Unlock()

	if running {
		close(p.stop)
		<-p.done
	}
	return p.Flush(ctx)
}

// Enqueue schedules value to be written under key without blocking on the store.
func (p *Persister) Enqueue(key string, value any) {
	blob, err := json.Marshal(value)
	if err != nil {
		log.Printf("encode %s: %v", key, err)
		return
	}

	p.mu.Lock()
	if _, ok := p.pending[key]; !ok {
		p.order = append(p.order, key)
	}
	p.pending[key] = blob
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush writes every pending value synchronously and returns the last write
// error. Values that failed stay pending.
func (p *Persister) Flush(ctx context.Context) error {
	return p.drain(ctx)
}

// LoadTimers reads the persisted roster. A missing key yields an empty roster.
func (p *Persister) LoadTimers(ctx context.Context) ([]model.Timer, error) {
	var timers []model.Timer
	if err := p.load(ctx, KeyTimers, &timers); err != nil {
		return nil, err
	}
	return timers, nil
}

// LoadHistory reads the persisted completion log. A missing key yields an empty log.
func (p *Persister) LoadHistory(ctx context.Context) ([]model.CompletionLogEntry, error) {
	var entries []model.CompletionLogEntry
	if err := p.load(ctx, KeyCompleted, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *Persister) load(ctx context.Context, key string, dst any) error {
	blob, ok, err := p.store.Load(ctx, key)
	if err != nil {
		return err
	}
	if !ok || len(blob) == 0 {
		return nil
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
			_ = p.drain(context.Background())
		}
	}
}

func (p *Persister) drain(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	order, pending := p.order, p.pending
	p.order, p.pending = nil, make(map[string][]byte)
	p.mu.Unlock()

	var lastErr error
	for _, key := range order {
		if err := p.store.Save(ctx, key, pending[key]); err != nil {
			log.Printf("persist %s: %v", key, err)
			lastErr = err
			p.retain(key, pending[key])
		}
	}
	return lastErr
}

// retain puts back a value whose write failed unless a newer one was queued.
func (p *Persister) retain(key string, blob []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[key]; ok {
		return
	}
	p.pending[key] = blob
	p.order = append(p.order, key)
}
