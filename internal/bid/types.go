// Package bid defines core types shared across subsystems.
package bid

import (
	"time"
)

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values reported to the status surface and persisted in snapshots.
const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusStopped   JobStatus = "stopped"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further keyword processing can occur for a job
// in this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusStopped, JobStatusFailed:
		return true
	}
	return false
}

// CandidateRecord is one announcement row extracted from the search result
// grid. It is immutable once produced by the row extractor.
type CandidateRecord struct {
	Category  string     `json:"category"`
	Number    string     `json:"number"`
	Title     string     `json:"title"`
	Agency    string     `json:"agency"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
	BidStart  *time.Time `json:"bid_start,omitempty"`
	BidOpen   *time.Time `json:"bid_open,omitempty"`
	BidClose  *time.Time `json:"bid_close,omitempty"`
	Stage     string     `json:"stage"`
	DetailURL string     `json:"detail_url,omitempty"`
}

// AdmittedRecord is a candidate that passed every acceptance predicate plus
// the dedup check. Admitted records are append-only within a job.
type AdmittedRecord struct {
	CandidateRecord
	Keyword    string        `json:"keyword"`
	AdmittedAt time.Time     `json:"admitted_at"`
	Detail     *DetailRecord `json:"detail,omitempty"`
}

// Attachment is one downloadable file linked from a detail page.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DetailRecord carries the enriched fields recovered from one announcement's
// detail page. Every field is independently optional; detail pages vary in
// which sections they render.
type DetailRecord struct {
	Number         string       `json:"number"`
	AgencyDivision string       `json:"agency_division,omitempty"`
	ContractMethod string       `json:"contract_method,omitempty"`
	BidType        string       `json:"bid_type,omitempty"`
	IndustryLimit  string       `json:"industry_limit,omitempty"`
	RegionLimit    string       `json:"region_limit,omitempty"`
	EstimatedPrice string       `json:"estimated_price,omitempty"`
	BudgetPrice    string       `json:"budget_price,omitempty"`
	ProgressInfo   string       `json:"progress_info,omitempty"`
	ContactName    string       `json:"contact_name,omitempty"`
	ContactPhone   string       `json:"contact_phone,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ExtractedVia   string       `json:"extracted_via,omitempty"`
}

// FieldCount returns how many structured fields (attachments excluded) carry
// a value. The detail extractor uses it to decide whether the DOM pass was
// good enough or the oracle tier has to run.
func (d DetailRecord) FieldCount() int {
	n := 0
	for _, v := range []string{
		d.AgencyDivision, d.ContractMethod, d.BidType, d.IndustryLimit,
		d.RegionLimit, d.EstimatedPrice, d.BudgetPrice, d.ProgressInfo,
		d.ContactName, d.ContactPhone,
	} {
		if v != "" {
			n++
		}
	}
	return n
}

// JobError records one keyword-scoped failure.
type JobError struct {
	Keyword   string    `json:"keyword"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// JobSnapshot is the periodic checkpoint persisted to the results sink. It is
// progress metadata only; losing one snapshot interval of it is acceptable.
type JobSnapshot struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	Processed     int       `json:"processed_keywords"`
	TotalKeywords int       `json:"total_keywords"`
	ResultCount   int       `json:"result_count"`
	ErrorCount    int       `json:"error_count"`
	TakenAt       time.Time `json:"taken_at"`
}

// JobState is the polling-friendly view of a crawl job consumed by the web
// layer. All fields are plain JSON-serializable values.
type JobState struct {
	JobID          string     `json:"job_id"`
	IsRunning      bool       `json:"is_running"`
	CurrentKeyword string     `json:"current_keyword"`
	ProcessedCount int        `json:"processed_count"`
	TotalKeywords  int        `json:"total_keywords"`
	TotalResults   int        `json:"total_results"`
	Status         JobStatus  `json:"status"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Errors         []JobError `json:"errors"`
}

// ResultSet is the bulk results object returned by the results endpoint.
type ResultSet struct {
	Results           []AdmittedRecord `json:"results"`
	ProcessedKeywords int              `json:"processed_keywords"`
	TotalKeywords     int              `json:"total_keywords"`
}
