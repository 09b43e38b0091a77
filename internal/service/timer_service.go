package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"multi-timer/internal/model"
)

// DefaultTimestampLayout renders completion times like "3/14/2025, 9:26:53 PM".
const DefaultTimestampLayout = "1/2/2006, 3:04:05 PM"

// ErrInvalidTimer is wrapped by every ValidationError.
var ErrInvalidTimer = errors.New("invalid timer")

// ValidationError describes rejected timer input in user-facing words.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTimer
}

// TimerInput is the raw creation form: every field is required.
type TimerInput struct {
	Name     string
	Duration string
	Category string
}

// NewTimerID returns a fresh random timer identifier.
func NewTimerID() string {
	return uuid.New().String()
}

// ParseTimerInput validates input and builds an Idle timer with a new id.
func ParseTimerInput(input TimerInput) (model.Timer, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	rawDuration := strings.TrimSpace(input.Duration)

	if name == "" || category == "" || rawDuration == "" {
		return model.Timer{}, &ValidationError{Field: missingField(name, rawDuration, category), Message: "please fill all fields"}
	}

	seconds, err := ParseDuration(rawDuration)
	if err != nil {
		return model.Timer{}, err
	}

	timer := model.Timer{
		ID:            NewTimerID(),
		Name:          name,
		Category:      category,
		Duration:      seconds,
		RemainingTime: seconds,
	}
	timer.SetStatus(model.StatusIdle)
	return timer, nil
}

// ParseDuration reads a positive whole number of seconds.
func ParseDuration(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: "duration", Message: "please fill all fields"}
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "duration", Message: "duration must be a whole number of seconds"}
	}
	if seconds <= 0 {
		return 0, &ValidationError{Field: "duration", Message: "duration must be greater than zero"}
	}
	return seconds, nil
}

func missingField(name, duration, category string) string {
	switch {
	case name == "":
		return "name"
	case duration == "":
		return "duration"
	default:
		return "category"
	}
}

// TimerService is the intent surface offered to the view layer.
type TimerService struct {
	registry *Registry
	loader   Loader
}

func NewTimerService(registry *Registry, loader Loader) *TimerService {
	return &TimerService{registry: registry, loader: loader}
}

// Reload re-reads the persisted roster and history, as on app foreground.
func (s *TimerService) Reload(ctx context.Context) {
	if s.loader == nil {
		return
	}
	s.registry.Reload(ctx, s.loader)
}

// CreateTimer validates input and dispatches ADD_TIMER. Invalid input never
// reaches the registry.
func (s *TimerService) CreateTimer(input TimerInput) (model.Timer, error) {
	timer, err := ParseTimerInput(input)
	if err != nil {
		return model.Timer{}, err
	}
	s.registry.Dispatch(AddTimer(timer))
	return timer, nil
}

func (s *TimerService) Start(id string) bool {
	return s.registry.Dispatch(StartTimer(id))
}

func (s *TimerService) Pause(id string) bool {
	return s.registry.Dispatch(PauseTimer(id))
}

// Reset also serves as the acknowledgement of a completed timer.
func (s *TimerService) Reset(id string) bool {
	return s.registry.Dispatch(ResetTimer(id))
}

func (s *TimerService) StartAll(category string) bool {
	return s.registry.Dispatch(StartAll(category))
}

func (s *TimerService) PauseAll(category string) bool {
	return s.registry.Dispatch(PauseAll(category))
}

func (s *TimerService) ResetAll(category string) bool {
	return s.registry.Dispatch(ResetAll(category))
}

func (s *TimerService) Get(id string) (model.Timer, bool) {
	return s.registry.Timer(id)
}

func (s *TimerService) Groups() []model.Group {
	return s.registry.Groups()
}

func (s *TimerService) History() []model.CompletionLogEntry {
	return s.registry.History()
}

// Categories lists distinct categories in first-seen order.
func (s *TimerService) Categories() []string {
	groups := s.registry.Groups()
	out := make([]string, 0, len(groups))
	for _, group := range groups {
		out = append(out, group.Category)
	}
	return out
}

// StampFormatter returns a formatter for completion timestamps.
func StampFormatter(layout string, loc *time.Location) func(time.Time) string {
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return func(t time.Time) string {
		return t.In(loc).Format(layout)
	}
}
