package models

import "time"

// Evidence records the provenance of a node or edge observation: where it
// came from, what extracted it, and a content hash of the canonicalized
// raw bytes it was drawn from.
type Evidence struct {
	ID                 string    `json:"id"`
	EvidenceType        string    `json:"evidence_type"`
	SourceURL           string    `json:"source_url"`
	RetrievedAt         time.Time `json:"retrieved_at"`
	ExtractorName       string    `json:"extractor_name"`
	ExtractorVersion    string    `json:"extractor_version"`
	RawDataKey          string    `json:"raw_data_key"`
	ContentHash         string    `json:"content_hash"`
	ExtractionConfidence float64  `json:"extraction_confidence"`
}

// RunStatus enumerates IngestionRun.status.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// IngestionError is one entry in an IngestionRun's errors list.
type IngestionError struct {
	RecordID string `json:"record_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
}

// IngestionRun is the per-run bookkeeping row (§3, §4.4 O1).
type IngestionRun struct {
	ID                 string           `json:"id"`
	Source              string           `json:"source"`
	Status              RunStatus        `json:"status"`
	StartedAt           time.Time        `json:"started_at"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	RecordsProcessed    int              `json:"records_processed"`
	RecordsCreated      int              `json:"records_created"`
	RecordsUpdated      int              `json:"records_updated"`
	DuplicatesFound     int              `json:"duplicates_found"`
	Errors              []IngestionError `json:"errors"`
	CapturedLog         string           `json:"captured_log"`
}

// ReviewCandidate is a supplemental review-queue row for a mention whose
// best candidate falls in the review band (§4.3); store.ReviewRepo.Enqueue
// persists it. The resolver itself only returns the decision and does not
// write to the queue.
type ReviewCandidate struct {
	ID          string             `json:"id"`
	MentionName string             `json:"mention_name"`
	CandidateID string             `json:"candidate_id"`
	Confidence  float64            `json:"confidence"`
	Signals     map[string]float64 `json:"signals"`
	CreatedAt   time.Time          `json:"created_at"`
}

// TimingEvent is one entry in the timing-event stream consumed by the
// temporal-coordination detector (§4.7).
type TimingEvent struct {
	EntityID  string         `json:"entity_id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
