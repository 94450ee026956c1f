package worker

import (
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeAnalyzeCover = "analyze_cover"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// AnalyzeCoverPayload is the payload for cover grayscale analysis jobs.
type AnalyzeCoverPayload struct {
	BookID uuid.UUID `json:"book_id"`
}
