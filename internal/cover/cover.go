// Package cover resolves, validates, scores and ranks book cover images.
//
// Covers arrive from heterogeneous sources: a key in our own object
// storage, an external provider URL, or a secondary fallback URL. This
// package reduces that mess to a single canonical display URL plus quality
// metadata, and provides a deterministic ordering over a batch of books so
// that "best cover first" means the same thing on every surface.
//
// Everything in this package is a pure function of its inputs. Nothing
// here performs I/O, nothing panics on malformed input, and every
// operation degrades to a safe default rather than returning an error.
package cover

// =============================================================================
// Quality Tier
// =============================================================================

// QualityTier summarizes how good a resolved cover is. Higher is strictly
// better. Ties within a tier are broken by the Ranker, not by this value.
type QualityTier int

const (
	// TierNone means no usable cover: placeholder, empty, or rejected
	// as an interior scan.
	TierNone QualityTier = 0

	// TierGrayscale is a usable but black-and-white cover.
	TierGrayscale QualityTier = 1

	// TierSmall is a color cover below the display threshold.
	TierSmall QualityTier = 2

	// TierStandard is a color cover meeting the display threshold.
	TierStandard QualityTier = 3

	// TierHighRes is a high-resolution color cover hosted externally.
	TierHighRes QualityTier = 4

	// TierHighResInternal is a high-resolution color cover in our own
	// object storage. The best we can do.
	TierHighResInternal QualityTier = 5
)

// String returns a short label for the tier, suitable for logs and metrics.
func (t QualityTier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierGrayscale:
		return "grayscale"
	case TierSmall:
		return "small"
	case TierStandard:
		return "standard"
	case TierHighRes:
		return "high_res"
	case TierHighResInternal:
		return "high_res_internal"
	}
	return "unknown"
}

// IsValid returns true if the tier is a recognized value.
func (t QualityTier) IsValid() bool {
	return t >= TierNone && t <= TierHighResInternal
}

// =============================================================================
// Data Model
// =============================================================================

// CoverCandidate is raw, possibly incomplete knowledge about one book's
// cover before resolution. Zero values mean "unknown": an empty string is
// an absent URL, a zero dimension is an unknown dimension.
type CoverCandidate struct {
	// Primary is either an internal storage key ("covers/abc.jpg") or an
	// absolute external URL. The Resolver decides which by shape.
	Primary string

	// FallbackExternal is a secondary external URL tried when Primary is
	// unusable.
	FallbackExternal string

	// Width and Height are explicit pixel dimensions when the caller
	// already knows them. Zero means unknown.
	Width  int
	Height int

	// HighRes is set when an upstream source has already asserted the
	// cover is high resolution. False means "not asserted", not "low
	// resolution"; the Resolver recomputes from dimensions either way.
	HighRes bool
}

// ResolvedCover is the canonical, always-valid description of one book's
// cover produced by the Resolver.
//
// Invariants: URL is never empty (it falls back to the placeholder path),
// and StorageKey is non-empty exactly when FromInternalStorage is true.
type ResolvedCover struct {
	URL                 string
	StorageKey          string
	FromInternalStorage bool
	Width               int
	Height              int
	HighRes             bool
}

// Pixels returns the total pixel count of the resolved dimensions.
func (rc ResolvedCover) Pixels() int {
	return rc.Width * rc.Height
}

// =============================================================================
// Configuration
// =============================================================================

// Default threshold values. The grayscale pair (saturation 0.15, coverage
// 0.95) and the pixel cutoffs are empirically chosen constants carried
// over from production behavior. Tune via Config, do not re-derive.
const (
	// DefaultPlaceholderPath is served when no usable candidate exists.
	DefaultPlaceholderPath = "/static/covers/placeholder.png"

	// PlaceholderMarker identifies placeholder URLs regardless of the
	// configured path.
	PlaceholderMarker = "placeholder"

	// DefaultHighResMinEdge is the minimum length, in pixels, that both
	// edges must reach for a cover to count as high resolution.
	DefaultHighResMinEdge = 600

	// DefaultDisplayMinWidth and DefaultDisplayMinHeight are the minimum
	// dimensions for comfortable on-screen rendering.
	DefaultDisplayMinWidth  = 200
	DefaultDisplayMinHeight = 300

	// DefaultGraySaturationMax is the HSB saturation at or below which a
	// sampled pixel counts as gray.
	DefaultGraySaturationMax = 0.15

	// DefaultGrayCoverageMin is the fraction of gray sampled pixels at or
	// above which the whole image is classified grayscale.
	DefaultGrayCoverageMin = 0.95

	// DefaultSampleStride samples every Nth pixel in both dimensions
	// during grayscale analysis.
	DefaultSampleStride = 5
)

// Config carries the tunables shared by the cover components. The zero
// value is not usable; start from DefaultConfig.
type Config struct {
	// StorageBaseURL is prefixed to internal storage keys to form public
	// URLs. When empty, the internal-storage resolution path is skipped
	// entirely.
	StorageBaseURL string

	// PlaceholderPath is the URL path returned when nothing resolves.
	PlaceholderPath string

	HighResMinEdge   int
	DisplayMinWidth  int
	DisplayMinHeight int

	GraySaturationMax float64
	GrayCoverageMin   float64
	SampleStride      int
}

// DefaultConfig returns a Config with the production default thresholds
// and no storage base URL.
func DefaultConfig() Config {
	return Config{
		PlaceholderPath:   DefaultPlaceholderPath,
		HighResMinEdge:    DefaultHighResMinEdge,
		DisplayMinWidth:   DefaultDisplayMinWidth,
		DisplayMinHeight:  DefaultDisplayMinHeight,
		GraySaturationMax: DefaultGraySaturationMax,
		GrayCoverageMin:   DefaultGrayCoverageMin,
		SampleStride:      DefaultSampleStride,
	}
}

// normalized fills zero fields with defaults so a partially populated
// Config never disables a component.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.PlaceholderPath == "" {
		c.PlaceholderPath = d.PlaceholderPath
	}
	if c.HighResMinEdge <= 0 {
		c.HighResMinEdge = d.HighResMinEdge
	}
	if c.DisplayMinWidth <= 0 {
		c.DisplayMinWidth = d.DisplayMinWidth
	}
	if c.DisplayMinHeight <= 0 {
		c.DisplayMinHeight = d.DisplayMinHeight
	}
	if c.GraySaturationMax <= 0 {
		c.GraySaturationMax = d.GraySaturationMax
	}
	if c.GrayCoverageMin <= 0 {
		c.GrayCoverageMin = d.GrayCoverageMin
	}
	if c.SampleStride <= 0 {
		c.SampleStride = d.SampleStride
	}
	return c
}
