package service

import (
	"strings"
	"testing"
	"time"

	"multi-timer/internal/model"
)

func TestFormatSeconds(t *testing.T) {
	tests := map[int]string{
		0:    "0:00",
		-3:   "0:00",
		9:    "0:09",
		180:  "3:00",
		3599: "59:59",
		3600: "1:00:00",
		3725: "1:02:05",
	}
	for in, want := range tests {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestDigestSummarizesGroupsAndHistory(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Dispatch(UpdateTimers([]model.Timer{
		withStatus(newTimer("a", "Tea", "Kitchen", 60), model.StatusRunning, 30),
		newTimer("b", "Eggs", "Kitchen", 60),
		newTimer("c", "Stand<up>", "Office & Co", 60),
	}))
	registry.Dispatch(CompleteTimer("a", 0, model.CompletionLogEntry{Name: "Tea", CompletedAt: "3/14/2025, 9:26:53 PM"}))

	digest := NewReportService(registry, time.UTC).Digest(time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"2025-03-14 22:00",
		"📂 Kitchen: 1 idle, 1 completed",
		"📂 Office &amp; Co: 1 idle",
		"• Tea · 3/14/2025, 9:26:53 PM",
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
}

func TestDigestWhenEmpty(t *testing.T) {
	digest := NewReportService(NewRegistry(nil), nil).Digest(fixedNow)
	if !strings.Contains(digest, "no timers yet") || !strings.Contains(digest, "nothing completed yet") {
		t.Errorf("digest = %s", digest)
	}
}

func TestDigestListsNewestFirst(t *testing.T) {
	registry := NewRegistry(nil)
	for i, name := range []string{"one", "two", "three", "four", "five", "six"} {
		id := string(rune('a' + i))
		registry.Dispatch(AddTimer(newTimer(id, name, "C", 5)))
		registry.Dispatch(StartTimer(id))
		registry.Dispatch(CompleteTimer(id, 0, model.CompletionLogEntry{Name: name, CompletedAt: "t"}))
	}

	digest := NewReportService(registry, time.UTC).Digest(fixedNow)
	if strings.Contains(digest, "• one ") {
		t.Errorf("digest should keep only the latest five:\n%s", digest)
	}
	if strings.Index(digest, "• six") > strings.Index(digest, "• two") {
		t.Errorf("digest not newest first:\n%s", digest)
	}
}

func TestDigestUsesConfiguredZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	digest := NewReportService(NewRegistry(nil), tokyo).Digest(fixedNow)
	if !strings.Contains(digest, "2025-03-15 06:26") {
		t.Errorf("digest header not in configured zone:\n%s", digest)
	}
}
