// Package models contains shared data models used across the a1gen codebase.
package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the UTC, second-precision layout used for history timestamps.
const TimestampLayout = "2006-01-02 15:04:05Z"

// StatusUnknown is recorded when the remote task never reported a status.
const StatusUnknown = "unknown"

// HistoryEntry records the outcome of one generation run that reached the polling stage.
// Entries are immutable once appended.
type HistoryEntry struct {
	Timestamp    string   `db:"timestamp"     json:"timestamp"`
	TaskID       string   `db:"task_id"       json:"task_id"`
	Status       string   `db:"status"        json:"status"`
	InputImage   string   `db:"input_image"   json:"input_image"`
	ResultImages []string `db:"result_images" json:"result_images"`
}

// FormatTimestamp renders t in the history timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// MarshalJSON keeps result_images an array even when no URLs were collected.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	type alias HistoryEntry
	out := alias(e)
	if out.ResultImages == nil {
		out.ResultImages = []string{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON fills the default status when it is missing from stored documents.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	type alias HistoryEntry
	var in alias
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Status == "" {
		in.Status = StatusUnknown
	}
	if in.ResultImages == nil {
		in.ResultImages = []string{}
	}
	*e = HistoryEntry(in)
	return nil
}
