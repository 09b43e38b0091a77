package model

// Status is the lifecycle state of a countdown timer.
type Status string

const (
	StatusIdle      Status = "Idle"
	StatusRunning   Status = "Running"
	StatusPaused    Status = "Paused"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusPaused, StatusCompleted:
		return true
	default:
		return false
	}
}

// Timer is a named countdown grouped by a free-form category.
type Timer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Duration      int    `json:"duration"`
	RemainingTime int    `json:"remainingTime"`
	Status        Status `json:"status"`
	IsRunning     bool   `json:"isRunning"`

	// Run is bumped on every reset. Completions carry the run they finish,
	// so a stale one cannot end a restarted countdown. Not persisted.
	Run int `json:"-"`
}

// SetStatus is the only writer of Status and IsRunning; the two never disagree.
func (t *Timer) SetStatus(status Status) {
	t.Status = status
	t.IsRunning = status == StatusRunning
}

// Group holds the timers sharing one category, in roster order.
type Group struct {
	Category string
	Timers   []Timer
}
