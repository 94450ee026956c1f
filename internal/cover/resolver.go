package cover

import (
	"net/url"
	"strings"
)

// Resolver turns raw cover candidates into canonical ResolvedCover values.
// It is safe for concurrent use; a single instance is shared process-wide.
type Resolver struct {
	cfg Config
}

// NewResolver creates a Resolver. Zero fields in cfg fall back to the
// production defaults.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.normalized()}
}

// Resolve applies the fallback cascade and returns a usable cover for any
// input, in preference order:
//
//  1. Primary that looks like an absolute URL or data URI: use it as an
//     external cover.
//  2. Primary that is a non-blank storage key, when a storage base URL is
//     configured: serve from internal storage.
//  3. FallbackExternal, when it is a well-formed URL.
//  4. The placeholder path.
//
// Explicit positive candidate dimensions are used verbatim; otherwise
// dimensions are estimated from the final URL. The high-resolution flag is
// the candidate's assertion OR'd with a dimension check: both edges must
// meet the configured minimum, so an estimated default portrait size never
// self-classifies as high resolution.
func (r *Resolver) Resolve(c CoverCandidate) ResolvedCover {
	rc := ResolvedCover{}

	primary := strings.TrimSpace(c.Primary)
	fallback := strings.TrimSpace(c.FallbackExternal)

	switch {
	case isExternalURL(primary):
		rc.URL = primary
	case primary != "" && r.cfg.StorageBaseURL != "":
		key := strings.TrimPrefix(primary, "/")
		rc.StorageKey = key
		rc.FromInternalStorage = true
		rc.URL = joinURL(r.cfg.StorageBaseURL, key)
	case isExternalURL(fallback):
		rc.URL = fallback
	default:
		rc.URL = r.cfg.PlaceholderPath
	}

	if c.Width > 0 && c.Height > 0 {
		rc.Width, rc.Height = c.Width, c.Height
	} else {
		rc.Width, rc.Height = EstimateDimensions(rc.URL)
	}

	rc.HighRes = c.HighRes || shortEdge(rc.Width, rc.Height) >= r.cfg.HighResMinEdge

	return rc
}

// IsPlaceholder reports whether a URL points at the placeholder image.
// An empty URL counts as a placeholder.
func (r *Resolver) IsPlaceholder(rawURL string) bool {
	return rawURL == "" || strings.Contains(rawURL, PlaceholderMarker)
}

// isExternalURL reports whether s is usable as-is: an absolute http(s) URL
// with a host, or an inline data:image URI.
func isExternalURL(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "data:image") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// joinURL joins a base URL and a key with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}

// shortEdge returns the smaller dimension: both edges clear the high-res
// minimum exactly when the short edge does.
func shortEdge(w, h int) int {
	if w < h {
		return w
	}
	return h
}
