// Package domain contains core business types for the Quire catalog.
//
// This file defines the Book domain type: catalog metadata plus the raw
// and analyzed cover fields the cover pipeline works from.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Cover Analysis Status
// =============================================================================

// CoverAnalysisStatus tracks background grayscale analysis of a stored cover.
type CoverAnalysisStatus string

const (
	// CoverAnalysisStatusPending indicates the cover is queued for analysis.
	CoverAnalysisStatusPending CoverAnalysisStatus = "pending"

	// CoverAnalysisStatusCompleted indicates analysis finished successfully.
	CoverAnalysisStatusCompleted CoverAnalysisStatus = "completed"

	// CoverAnalysisStatusFailed indicates analysis failed permanently.
	CoverAnalysisStatusFailed CoverAnalysisStatus = "failed"

	// CoverAnalysisStatusSkipped indicates there is nothing to analyze
	// (external or placeholder cover).
	CoverAnalysisStatusSkipped CoverAnalysisStatus = "skipped"
)

// String returns the string representation of the status.
func (s CoverAnalysisStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s CoverAnalysisStatus) IsValid() bool {
	switch s {
	case CoverAnalysisStatusPending, CoverAnalysisStatusCompleted,
		CoverAnalysisStatusFailed, CoverAnalysisStatusSkipped:
		return true
	}
	return false
}

// =============================================================================
// Book Domain Type
// =============================================================================

// MaxCoverSize is the maximum allowed size for an uploaded cover (10MB).
const MaxCoverSize = 10 * 1024 * 1024

// Book represents one catalog entry and everything we know about its
// cover before and after resolution.
type Book struct {
	ID     uuid.UUID
	Title  string
	Author string
	ISBN   string

	// Raw cover knowledge, as gathered from providers and uploads.
	// CoverKey is either an internal storage key or a full external URL;
	// the cover resolver decides which by shape.
	CoverKey         string
	FallbackCoverURL string
	CoverWidth       int32 // 0 = unknown
	CoverHeight      int32 // 0 = unknown
	CoverHighRes     bool

	// Analyzed cover state, filled by the background worker.
	CoverGrayscale bool
	AnalysisStatus CoverAnalysisStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasStoredCover reports whether the book's cover key looks like it could
// point at internal storage (non-empty and not an absolute URL). The
// resolver makes the authoritative call; this is a cheap pre-filter used
// when deciding whether to enqueue analysis.
func (b *Book) HasStoredCover() bool {
	if b.CoverKey == "" {
		return false
	}
	return !strings.Contains(b.CoverKey, "://") && !strings.HasPrefix(b.CoverKey, "data:")
}

// CreateBookParams contains parameters for creating a book.
type CreateBookParams struct {
	Title            string
	Author           string
	ISBN             string
	CoverKey         string
	FallbackCoverURL string
	CoverWidth       int32
	CoverHeight      int32
	CoverHighRes     bool
}

// Validate checks required fields before persistence.
func (p CreateBookParams) Validate() error {
	if p.Title == "" {
		return Invalid("book.create", "title is required")
	}
	if p.CoverWidth < 0 || p.CoverHeight < 0 {
		return Invalid("book.create", "cover dimensions must be non-negative")
	}
	return nil
}
