package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"multi-timer/internal/model"
)

const digestHistoryLimit = 5

// ReportService builds human-readable summaries of the roster and history.
type ReportService struct {
	registry *Registry
	loc      *time.Location
}

// NewReportService renders digest times in loc, Local when nil.
func NewReportService(registry *Registry, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{registry: registry, loc: loc}
}

// Digest summarizes every category and the most recent completions.
func (s *ReportService) Digest(now time.Time) string {
	state := s.registry.Snapshot()

	var builder strings.Builder
	builder.WriteString("📋 <b>Timer digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.In(s.loc).Format("2006-01-02 15:04")))

	groups := GroupByCategory(state.Timers)
	builder.WriteString("⏱ <b>Timers</b>\n")
	if len(groups) == 0 {
		builder.WriteString("— no timers yet\n")
	}
	for _, group := range groups {
		builder.WriteString(formatGroupLine(group))
	}

	builder.WriteString("\n🏁 <b>Recent completions</b>\n")
	latest := state.History.Latest(digestHistoryLimit)
	if len(latest) == 0 {
		builder.WriteString("— nothing completed yet\n")
	}
	for _, entry := range latest {
		builder.WriteString(fmt.Sprintf("• %s · %s\n", html.EscapeString(entry.Name), html.EscapeString(entry.CompletedAt)))
	}

	return strings.TrimSpace(builder.String())
}

func formatGroupLine(group model.Group) string {
	counts := make(map[model.Status]int)
	for _, timer := range group.Timers {
		counts[timer.Status]++
	}

	parts := make([]string, 0, 4)
	for _, status := range []model.Status{model.StatusRunning, model.StatusPaused, model.StatusIdle, model.StatusCompleted} {
		if counts[status] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d %s", counts[status], strings.ToLower(string(status))))
	}
	return fmt.Sprintf("📂 %s: %s\n", html.EscapeString(group.Category), strings.Join(parts, ", "))
}

// FormatSeconds renders a countdown as m:ss, or h:mm:ss past an hour.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
