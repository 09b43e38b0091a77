package service

import "multi-timer/internal/model"

// ActionType names an intent accepted by the registry.
type ActionType string

const (
	ActionAddTimer      ActionType = "ADD_TIMER"
	ActionUpdateTimers  ActionType = "UPDATE_TIMERS"
	ActionStartTimer    ActionType = "START_TIMER"
	ActionPauseTimer    ActionType = "PAUSE_TIMER"
	ActionResetTimer    ActionType = "RESET_TIMER"
	ActionStartAll      ActionType = "START_ALL"
	ActionPauseAll      ActionType = "PAUSE_ALL"
	ActionResetAll      ActionType = "RESET_ALL"
	ActionCompleteTimer ActionType = "COMPLETE_TIMER"

	// ActionTickTimer is raised by the clock only; it writes the countdown
	// back so pausing keeps progress.
	ActionTickTimer ActionType = "TICK_TIMER"
)

// Action is one intent with its payload. Use the constructors below.
type Action struct {
	Type      ActionType
	TimerID   string
	Category  string
	Timer     model.Timer
	Timers    []model.Timer
	Log       model.CompletionLogEntry
	Remaining int
	Run       int
}

func AddTimer(timer model.Timer) Action {
	return Action{Type: ActionAddTimer, Timer: timer}
}

func UpdateTimers(timers []model.Timer) Action {
	return Action{Type: ActionUpdateTimers, Timers: append([]model.Timer{}, timers...)}
}

func StartTimer(id string) Action {
	return Action{Type: ActionStartTimer, TimerID: id}
}

func PauseTimer(id string) Action {
	return Action{Type: ActionPauseTimer, TimerID: id}
}

func ResetTimer(id string) Action {
	return Action{Type: ActionResetTimer, TimerID: id}
}

func StartAll(category string) Action {
	return Action{Type: ActionStartAll, Category: category}
}

func PauseAll(category string) Action {
	return Action{Type: ActionPauseAll, Category: category}
}

func ResetAll(category string) Action {
	return Action{Type: ActionResetAll, Category: category}
}

// CompleteTimer finishes run of timer id. It is ignored once the timer was
// reset since that run started.
func CompleteTimer(id string, run int, entry model.CompletionLogEntry) Action {
	return Action{Type: ActionCompleteTimer, TimerID: id, Run: run, Log: entry}
}

func TickTimer(id string, remaining int) Action {
	return Action{Type: ActionTickTimer, TimerID: id, Remaining: remaining}
}
