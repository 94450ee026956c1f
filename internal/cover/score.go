package cover

import "strings"

// Scorer reduces a resolved cover plus validity and grayscale evidence to
// a discrete quality tier. Safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer. Zero fields in cfg fall back to defaults.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg.normalized()}
}

// Score evaluates the tier decision table top-down, first match wins:
//
//	no usable URL, or fails the cover validator        -> TierNone
//	usable but grayscale                               -> TierGrayscale
//	color, below the display threshold                 -> TierSmall
//	color, meets the display threshold                 -> TierStandard
//	color, high resolution, externally hosted          -> TierHighRes
//	color, high resolution, internally stored          -> TierHighResInternal
//
// Absence of grayscale evidence is not evidence of grayscale: callers
// that never analyzed the bitmap pass false.
func (s *Scorer) Score(rc ResolvedCover, isValidCover, isGrayscale bool) QualityTier {
	if rc.URL == "" || isPlaceholderURL(rc.URL) || !isValidCover {
		return TierNone
	}
	if isGrayscale {
		return TierGrayscale
	}
	if rc.Width < s.cfg.DisplayMinWidth || rc.Height < s.cfg.DisplayMinHeight {
		return TierSmall
	}
	if !rc.HighRes {
		return TierStandard
	}
	if !rc.FromInternalStorage {
		return TierHighRes
	}
	return TierHighResInternal
}

// isPlaceholderURL matches any placeholder URL, independent of the
// configured path, so candidates resolved under a different config still
// score zero.
func isPlaceholderURL(rawURL string) bool {
	return strings.Contains(rawURL, PlaceholderMarker)
}
