package service

import "multi-timer/internal/model"

// HistoryLog is the append-only list of completion records. Values are
// copy-on-write: Append never touches the receiver's backing array, so a
// HistoryLog held by an earlier snapshot stays unchanged.
type HistoryLog struct {
	entries []model.CompletionLogEntry
}

// NewHistoryLog wraps previously persisted entries.
func NewHistoryLog(entries []model.CompletionLogEntry) HistoryLog {
	return HistoryLog{entries: append([]model.CompletionLogEntry(nil), entries...)}
}

// Append returns a log with entry added at the end.
func (h HistoryLog) Append(entry model.CompletionLogEntry) HistoryLog {
	next := make([]model.CompletionLogEntry, len(h.entries), len(h.entries)+1)
	copy(next, h.entries)
	return HistoryLog{entries: append(next, entry)}
}

// Entries returns a copy of the records in completion order.
func (h HistoryLog) Entries() []model.CompletionLogEntry {
	return append([]model.CompletionLogEntry{}, h.entries...)
}

func (h HistoryLog) Len() int {
	return len(h.entries)
}

// Latest returns up to n most recent records, newest first.
func (h HistoryLog) Latest(n int) []model.CompletionLogEntry {
	if n <= 0 || len(h.entries) == 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]model.CompletionLogEntry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}
