package model

// CompletionLogEntry records one finished countdown. Name is a snapshot taken at
// completion time; CompletedAt is stored exactly as it was formatted.
type CompletionLogEntry struct {
	Name        string `json:"name"`
	CompletedAt string `json:"completedAt"`
}
