// Package triage defines the record types that flow between the
// pipeline stages: FailureEvent in, DiagnosisRecord and
// ValidationRecord across the bus, ExecutionResult out. Records are
// immutable after creation and travel as UTF-8 JSON payloads; field
// names are part of the cross-stage wire contract.
package triage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FixType categorizes a proposed remediation command.
type FixType string

// Enumerated fix types.
const (
	FixTypeNpm          FixType = "npm_fix"
	FixTypeManualReview FixType = "manual_review"
	FixTypeOther        FixType = "other"
)

// Risk classifies how dangerous a command is to run automatically.
// Only RiskLow commands are eligible for execution.
type Risk string

// Enumerated risk levels.
const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// ManualReviewCommand is the sentinel used when no safe command could
// be derived. The remediator treats it as "nothing to execute".
const ManualReviewCommand = "echo 'manual review required'"

// FailureEvent is the raw pipeline-failure payload produced by an
// external CI system. Missing fields are normalized to "unknown" when
// the diagnosis prompt is built, never left null.
type FailureEvent struct {
	BuildStatus string `json:"buildStatus,omitempty"`
	Step        string `json:"step,omitempty"`
	Error       string `json:"error,omitempty"`
	Log         string `json:"log,omitempty"`
	Repository  string `json:"repository,omitempty"`
	BuildID     string `json:"buildId,omitempty"`
	Provider    string `json:"provider,omitempty"`

	// Raw carries the original payload when it could not be decoded as
	// a structured event. The event is still diagnosed, degraded.
	Raw string `json:"raw,omitempty"`
}

// Metadata carries event provenance through every downstream record.
type Metadata struct {
	Repository string `json:"repository"`
	BuildID    string `json:"buildId"`
	Provider   string `json:"provider"`
	Step       string `json:"step"`
}

// MetadataFrom extracts provenance from an event, defaulting missing
// fields to "unknown".
func MetadataFrom(event *FailureEvent) Metadata {
	return Metadata{
		Repository: orUnknown(event.Repository),
		BuildID:    orUnknown(event.BuildID),
		Provider:   orUnknown(event.Provider),
		Step:       orUnknown(event.Step),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// DiagnosisRecord is the normalized output of the diagnoser stage.
// Invariant: FixType == FixTypeManualReview implies Risk == RiskHigh
// and Command == ManualReviewCommand.
type DiagnosisRecord struct {
	ID         string    `json:"id"`
	Diagnosis  string    `json:"diagnosis"`
	FixType    FixType   `json:"fix_type"`
	Command    string    `json:"command"`
	Risk       Risk      `json:"risk"`
	Confidence float64   `json:"confidence"`
	Metadata   Metadata  `json:"metadata"`
	AIResponse string    `json:"ai_response"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidationRecord is the validator's decision about a diagnosis.
// Invariant: Approved == true implies the command passed the keyword
// policy and is non-empty and not the manual-review sentinel.
type ValidationRecord struct {
	ID          string    `json:"id"`
	DiagnosisID string    `json:"original_diagnosis_id"`
	Command     string    `json:"command"`
	FixType     FixType   `json:"fix_type"`
	Risk        Risk      `json:"risk"`
	Confidence  float64   `json:"confidence"`
	Approved    bool      `json:"approved"`
	Reason      string    `json:"reason"`
	Metadata    Metadata  `json:"metadata"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExecutionResult is the terminal record of a remediation attempt.
// It is logged, never republished.
type ExecutionResult struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Command   string    `json:"command"`
	FixType   FixType   `json:"fix_type"`
	Risk      Risk      `json:"risk"`
	Success   bool      `json:"success"`
	Stdout    string    `json:"stdout"`
	Stderr    string    `json:"stderr"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Metadata  Metadata  `json:"metadata"`
}

// NewID generates a record id with a time-based prefix and a random
// suffix, e.g. "diag-1735689600-3f2a9c1b". Ids are unique per record,
// not deduplication keys: redelivered messages produce fresh ids.
func NewID(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), uuid.New().String()[:8])
}
