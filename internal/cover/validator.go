package cover

import "strings"

// Some providers return interior scans (title pages, copyright pages,
// tables of contents) from the same endpoint that serves covers. A wrong
// image is worse than no image, so matching URLs are rejected outright.
var interiorMarkers = []string{
	"printsec=titlepage",
	"printsec=copyright",
	"printsec=toc",
	"printsec=index",
	"title_page",
	"copyright_page",
	"table_of_contents",
}

// Google Books is the one high-volume provider known to serve interior
// scans without any interior marker in the URL. Its genuine front covers
// carry the page-curl edge hint, so we require it and accept that a rare
// legitimate cover without the hint gets rejected. Strictness is the
// point: never show a title-page scan as a cover.
const (
	googleBooksHost     = "books.google"
	googleBooksContent  = "/books/content"
	googleBooksEdgeHint = "edge=curl"
)

// IsLikelyCover reports whether a URL plausibly points at a real front
// cover rather than an interior scan. Unknown providers are accepted by
// default; only known bad patterns reject.
func IsLikelyCover(rawURL string) bool {
	_, rejected := RejectionReason(rawURL)
	return !rejected
}

// RejectionReason explains why a URL would be rejected by IsLikelyCover.
// The boolean is true when the URL is rejected; the string is a
// human-readable reason for logs and metrics, empty on acceptance.
func RejectionReason(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	lower := strings.ToLower(rawURL)

	for _, marker := range interiorMarkers {
		if strings.Contains(lower, marker) {
			return "interior content marker: " + marker, true
		}
	}

	if strings.Contains(lower, googleBooksHost) && strings.Contains(lower, googleBooksContent) {
		if !strings.Contains(lower, googleBooksEdgeHint) {
			return "google books content url missing " + googleBooksEdgeHint + " cover hint", true
		}
	}

	return "", false
}
