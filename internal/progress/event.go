// Package progress fans crawl status events out to registered subscribers.
package progress

import "time"

// Event types emitted by the job runner.
const (
	TypeJobStarted     = "job_started"
	TypeKeywordStarted = "keyword_started"
	TypeKeywordDone    = "keyword_done"
	TypeKeywordFailed  = "keyword_failed"
	TypeRecordAdmitted = "record_admitted"
	TypeCheckpoint     = "checkpoint"
	TypeJobFinished    = "job_finished"
)

// Event is one crawl status update. Data holds JSON-serializable values only;
// the web layer forwards events to browsers verbatim.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
