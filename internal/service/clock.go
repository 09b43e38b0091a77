package service

import (
	"log"
	"sync"
	"time"

	"multi-timer/internal/model"
)

// Scheduler runs a job periodically until the returned cancel func is called.
type Scheduler interface {
	Every(interval time.Duration, job func()) (func(), error)
}

// Dispatcher is the part of the registry the clock feeds intents into.
type Dispatcher interface {
	Dispatch(action Action) bool
}

// ClockConfig contains runtime options for Clock.
type ClockConfig struct {
	TickInterval time.Duration
	Now          func() time.Time
	// Stamp formats the completion time stored in the history log.
	Stamp func(time.Time) string
}

type tickTask struct {
	cancel    func()
	remaining int
	name      string
	run       int
	fired     bool
}

// Clock keeps one cancellable tick task per Running timer. Its countdown is a
// mirror of the registry value, refreshed on every observed event.
type Clock struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	scheduler  Scheduler
	config     ClockConfig
	tasks      map[string]*tickTask
	stopped    bool
}

func NewClock(dispatcher Dispatcher, scheduler Scheduler, config ClockConfig) *Clock {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Stamp == nil {
		config.Stamp = func(t time.Time) string { return t.Format(DefaultTimestampLayout) }
	}
	return &Clock{
		dispatcher: dispatcher,
		scheduler:  scheduler,
		config:     config,
		tasks:      make(map[string]*tickTask),
	}
}

// Observe reconciles tick tasks with a registry event.
func (c *Clock) Observe(event Event) {
	c.Sync(event.State.Timers)
}

// Sync starts ticking for Running timers and cancels every other task.
func (c *Clock) Sync(timers []model.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	running := make(map[string]struct{}, len(timers))
	for _, timer := range timers {
		if timer.Status != model.StatusRunning {
			continue
		}
		running[timer.ID] = struct{}{}

		task, ok := c.tasks[timer.ID]
		if ok && task.run != timer.Run {
			if task.cancel != nil {
				task.cancel()
			}
			delete(c.tasks, timer.ID)
			ok = false
		}
		if ok {
			if !task.fired {
				task.remaining = timer.RemainingTime
				task.name = timer.Name
			}
			continue
		}
		c.scheduleLocked(timer)
	}

	for id, task := range c.tasks {
		if _, ok := running[id]; ok {
			continue
		}
		if task.cancel != nil {
			task.cancel()
		}
		delete(c.tasks, id)
	}
}

// Remaining returns the countdown mirror of a ticking timer.
func (c *Clock) Remaining(id string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.tasks[id]
	if !ok {
		return 0, false
	}
	return task.remaining, true
}

// Active returns how many timers are currently ticking.
func (c *Clock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Stop cancels every tick task. Later events are ignored.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for id, task := range c.tasks {
		if task.cancel != nil {
			task.cancel()
		}
		delete(c.tasks, id)
	}
}

func (c *Clock) scheduleLocked(timer model.Timer) {
	task := &tickTask{remaining: timer.RemainingTime, name: timer.Name, run: timer.Run}
	id := timer.ID
	cancel, err := c.scheduler.Every(c.config.TickInterval, func() { c.tick(id, task) })
	if err != nil {
		log.Printf("schedule timer %s: %v", id, err)
		return
	}
	task.cancel = cancel
	c.tasks[id] = task
}

func (c *Clock) tick(id string, task *tickTask) {
	c.mu.Lock()
	if c.tasks[id] != task || task.fired {
		c.mu.Unlock()
		return
	}
	if task.remaining > 1 {
		task.remaining--
		remaining := task.remaining
		c.mu.Unlock()
		c.dispatcher.Dispatch(TickTimer(id, remaining))
		return
	}

	task.remaining = 0
	task.fired = true
	if task.cancel != nil {
		task.cancel()
	}
	entry := model.CompletionLogEntry{
		Name:        task.name,
		CompletedAt: c.config.Stamp(c.config.Now()),
	}
	c.mu.Unlock()

	log.Printf("[info] timer finished id=%s name=%q", id, entry.Name)
	c.dispatcher.Dispatch(CompleteTimer(id, task.run, entry))
}
