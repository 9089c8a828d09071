package model

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// AllJobStatuses is the closed status set, in lifecycle order. Statistics
// responses key every entry even when its count is zero.
var AllJobStatuses = []JobStatus{
	JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled,
}

// IsTerminal reports whether no further status transition is permitted.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job types. The column is an open string tag so new pipelines can appear
// without a migration; these are the ones the service creates itself.
const (
	JobTypeVideoGeneration  = "video_generation"
	JobTypeScriptGeneration = "script_generation"
	JobTypeAssetDiscovery   = "asset_discovery"
	JobTypeAudioProcessing  = "audio_processing"
)

var KnownJobTypes = []string{
	JobTypeVideoGeneration, JobTypeScriptGeneration, JobTypeAssetDiscovery, JobTypeAudioProcessing,
}

type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityMedium JobPriority = "medium"
	JobPriorityHigh   JobPriority = "high"
)

func (p JobPriority) Valid() bool {
	switch p {
	case JobPriorityLow, JobPriorityMedium, JobPriorityHigh:
		return true
	}
	return false
}

type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
	StepStatusSkipped    StepStatus = "skipped"
)

// JobStep is an ordered sub-unit of a Job's work, matched by Name when the
// caller reports step progress. Names are unique within a job (enforced at
// creation).
type JobStep struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      StepStatus      `json:"status"`
	Progress    int             `json:"progress"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// JobMetadata is the structured bag attached to every job. It is a typed
// sub-record at the domain layer; the store adapter serializes it as JSON.
type JobMetadata struct {
	UserID            string      `json:"userId,omitempty"`
	Priority          JobPriority `json:"priority"`
	EstimatedDuration int         `json:"estimatedDuration,omitempty"`
	StartedAt         *time.Time  `json:"startedAt,omitempty"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
	Steps             []JobStep   `json:"steps,omitempty"`
}

// Job is the unit of trackable work.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    JobStatus       `json:"status"`
	Progress  int             `json:"progress"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	Metadata  JobMetadata     `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StepByName returns a pointer into Metadata.Steps, or nil when absent.
func (j *Job) StepByName(name string) *JobStep {
	for i := range j.Metadata.Steps {
		if j.Metadata.Steps[i].Name == name {
			return &j.Metadata.Steps[i]
		}
	}
	return nil
}

// JobFilter narrows Search results. Zero values mean "no constraint".
type JobFilter struct {
	Type          string
	Status        JobStatus
	UserID        string
	Priority      JobPriority
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// JobStatistics aggregates the whole job store for the overview endpoint.
type JobStatistics struct {
	Total              int               `json:"total"`
	ByStatus           map[JobStatus]int `json:"byStatus"`
	ByType             map[string]int    `json:"byType"`
	AvgDurationSeconds float64           `json:"averageDurationSeconds"`
	SuccessRate        float64           `json:"successRate"`
}
