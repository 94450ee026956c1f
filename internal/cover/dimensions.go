package cover

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Dimension estimation defaults. When nothing in the URL gives away a
// size, assume a standard portrait cover.
const (
	DefaultEstimatedWidth  = 400
	DefaultEstimatedHeight = 600

	// minValidDimension floors explicit w=/h= query values; anything
	// smaller is almost certainly a tracking pixel or a typo.
	minValidDimension = 50
)

// zoomSizes maps the Google Books zoom query parameter to pixel sizes.
// Only the endpoints are documented upstream; the interior points follow
// the same aspect ratio.
var zoomSizes = map[string][2]int{
	"1": {200, 300},
	"2": {280, 420},
	"3": {420, 630},
	"4": {640, 960},
}

// sizeClassSuffixes maps OpenLibrary-style single-letter size classes
// ("...-S.jpg", "...-M.jpg", "...-L.jpg") to pixel sizes.
var sizeClassSuffixes = map[string][2]int{
	"S": {100, 150},
	"M": {220, 330},
	"L": {500, 750},
}

// dimensionRule is one provider heuristic: inspect a parsed URL, return
// dimensions and whether the rule matched. Rules are tried in order and
// the first match wins, so new providers slot in without touching call
// sites.
type dimensionRule func(u *url.URL) (int, int, bool)

var dimensionRules = []dimensionRule{
	zoomParamRule,
	explicitParamsRule,
	sizeSuffixRule,
}

// EstimateDimensions infers pixel dimensions from URL structure when no
// explicit dimensions were supplied. It always returns a positive pair,
// falling back to the default portrait size. Unparseable input never
// errors, it just falls through.
func EstimateDimensions(rawURL string) (int, int) {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return DefaultEstimatedWidth, DefaultEstimatedHeight
	}

	for _, rule := range dimensionRules {
		if w, h, ok := rule(u); ok {
			return w, h
		}
	}
	return DefaultEstimatedWidth, DefaultEstimatedHeight
}

// zoomParamRule maps a known zoom level through the fixed lookup table.
// Unknown zoom values fall through to the next rule.
func zoomParamRule(u *url.URL) (int, int, bool) {
	zoom := u.Query().Get("zoom")
	if zoom == "" {
		return 0, 0, false
	}
	size, ok := zoomSizes[zoom]
	if !ok {
		return 0, 0, false
	}
	return size[0], size[1], true
}

// explicitParamsRule reads w= and h= query parameters. Both must parse as
// positive integers; each is floored at the minimum valid dimension.
func explicitParamsRule(u *url.URL) (int, int, bool) {
	q := u.Query()
	w, errW := strconv.Atoi(q.Get("w"))
	h, errH := strconv.Atoi(q.Get("h"))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	if w < minValidDimension {
		w = minValidDimension
	}
	if h < minValidDimension {
		h = minValidDimension
	}
	return w, h, true
}

// sizeSuffixRule recognizes single-letter size-class filename suffixes
// such as "12345-L.jpg".
func sizeSuffixRule(u *url.URL) (int, int, bool) {
	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))

	idx := strings.LastIndex(base, "-")
	if idx < 0 || idx != len(base)-2 {
		return 0, 0, false
	}
	size, ok := sizeClassSuffixes[strings.ToUpper(base[idx+1:])]
	if !ok {
		return 0, 0, false
	}
	return size[0], size[1], true
}
