package service

import (
	"strings"

	"multi-timer/internal/model"
)

// State is an immutable snapshot of the roster and the completion log.
type State struct {
	Timers  []model.Timer
	History HistoryLog
}

// Change reports which persisted collections an action modified.
type Change struct {
	Roster  bool
	History bool
}

// Any reports whether anything changed.
func (c Change) Any() bool {
	return c.Roster || c.History
}

// Reduce applies action to state. It never mutates state in place; when nothing
// changes the original state is returned as is.
func Reduce(state State, action Action) (State, Change) {
	switch action.Type {
	case ActionAddTimer:
		return addTimer(state, action.Timer)
	case ActionUpdateTimers:
		timers := make([]model.Timer, 0, len(action.Timers))
		for _, timer := range action.Timers {
			if timer.ID == "" || timer.Duration <= 0 {
				continue
			}
			timer = sanitize(timer)
			if existing, ok := findByID(state.Timers, timer.ID); ok {
				timer.Run = existing.Run + 1
			}
			timers = append(timers, timer)
		}
		state.Timers = timers
		return state, Change{Roster: true}
	case ActionStartTimer:
		return mapTimers(state, byID(action.TimerID), start)
	case ActionPauseTimer:
		return mapTimers(state, byID(action.TimerID), pause)
	case ActionResetTimer:
		return mapTimers(state, byID(action.TimerID), reset)
	case ActionStartAll:
		return mapTimers(state, byCategory(action.Category), start)
	case ActionPauseAll:
		return mapTimers(state, byCategory(action.Category), pause)
	case ActionResetAll:
		return mapTimers(state, byCategory(action.Category), reset)
	case ActionTickTimer:
		return mapTimers(state, byID(action.TimerID), func(t *model.Timer) bool {
			return tick(t, action.Remaining)
		})
	case ActionCompleteTimer:
		next, change := mapTimers(state, byID(action.TimerID), func(t *model.Timer) bool {
			return t.Run == action.Run && complete(t)
		})
		if !change.Roster {
			return state, Change{}
		}
		next.History = next.History.Append(action.Log)
		change.History = true
		return next, change
	default:
		return state, Change{}
	}
}

func addTimer(state State, timer model.Timer) (State, Change) {
	if timer.ID == "" || strings.TrimSpace(timer.Name) == "" || strings.TrimSpace(timer.Category) == "" || timer.Duration <= 0 {
		return state, Change{}
	}
	for _, existing := range state.Timers {
		if existing.ID == timer.ID {
			return state, Change{}
		}
	}
	timer.RemainingTime = timer.Duration
	timer.SetStatus(model.StatusIdle)

	timers := make([]model.Timer, len(state.Timers), len(state.Timers)+1)
	copy(timers, state.Timers)
	state.Timers = append(timers, timer)
	return state, Change{Roster: true}
}

func mapTimers(state State, match func(model.Timer) bool, apply func(*model.Timer) bool) (State, Change) {
	var timers []model.Timer
	for i, timer := range state.Timers {
		if !match(timer) {
			continue
		}
		if !apply(&timer) {
			continue
		}
		if timers == nil {
			timers = append([]model.Timer{}, state.Timers...)
		}
		timers[i] = timer
	}
	if timers == nil {
		return state, Change{}
	}
	state.Timers = timers
	return state, Change{Roster: true}
}

func findByID(timers []model.Timer, id string) (model.Timer, bool) {
	for _, t := range timers {
		if t.ID == id {
			return t, true
		}
	}
	return model.Timer{}, false
}

func byID(id string) func(model.Timer) bool {
	return func(t model.Timer) bool { return t.ID == id }
}

func byCategory(category string) func(model.Timer) bool {
	return func(t model.Timer) bool { return t.Category == category }
}

// start moves Idle and Paused timers to Running. A completed timer has to be
// reset first.
func start(t *model.Timer) bool {
	if t.Status != model.StatusIdle && t.Status != model.StatusPaused {
		return false
	}
	if t.RemainingTime <= 0 {
		return false
	}
	t.SetStatus(model.StatusRunning)
	return true
}

func pause(t *model.Timer) bool {
	if t.Status != model.StatusRunning {
		return false
	}
	t.SetStatus(model.StatusPaused)
	return true
}

func reset(t *model.Timer) bool {
	if t.Status == model.StatusIdle && !t.IsRunning && t.RemainingTime == t.Duration {
		return false
	}
	t.RemainingTime = t.Duration
	t.SetStatus(model.StatusIdle)
	t.Run++
	return true
}

// tick stores the clock's countdown. Zero is reserved for completion, which
// must carry a log entry.
func tick(t *model.Timer, remaining int) bool {
	if t.Status != model.StatusRunning {
		return false
	}
	if remaining < 1 {
		return false
	}
	if remaining > t.Duration {
		remaining = t.Duration
	}
	if remaining == t.RemainingTime {
		return false
	}
	t.RemainingTime = remaining
	return true
}

func complete(t *model.Timer) bool {
	if t.Status != model.StatusRunning {
		return false
	}
	t.RemainingTime = 0
	t.SetStatus(model.StatusCompleted)
	return true
}

// sanitize enforces the timer invariants on externally supplied data.
func sanitize(t model.Timer) model.Timer {
	if t.RemainingTime < 0 || t.RemainingTime > t.Duration {
		t.RemainingTime = t.Duration
	}
	status := t.Status
	if !status.Valid() {
		status = model.StatusIdle
	}
	switch {
	case status == model.StatusCompleted && t.RemainingTime != 0:
		status = model.StatusIdle
	case status != model.StatusCompleted && t.RemainingTime == 0:
		t.RemainingTime = t.Duration
	}
	t.SetStatus(status)
	return t
}

// normalizeLoaded prepares a persisted roster for a fresh session: nothing
// stays Running, finished or corrupt countdowns start over.
func normalizeLoaded(timers []model.Timer) []model.Timer {
	out := make([]model.Timer, 0, len(timers))
	for _, t := range timers {
		if t.RemainingTime <= 0 || t.RemainingTime > t.Duration {
			t.RemainingTime = t.Duration
		}
		t.SetStatus(model.StatusIdle)
		out = append(out, t)
	}
	return out
}
