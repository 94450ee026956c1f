// Package service contains the business logic layer.
//
// This file implements cover image decoding and thumbnail generation.
// Decoding lives here so the cover package's grayscale analyzer only ever
// sees an already-decoded image.
package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	// Register decoders beyond the stdlib defaults; provider covers show
	// up as bmp and tiff often enough to matter.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	// ThumbnailMaxWidth and ThumbnailMaxHeight bound generated listing
	// thumbnails.
	ThumbnailMaxWidth  = 200
	ThumbnailMaxHeight = 300

	// ThumbnailJPEGQuality is the JPEG quality for thumbnails (0-100).
	ThumbnailJPEGQuality = 85
)

// ImageLoader decodes stored cover bytes into an image.
type ImageLoader interface {
	// Decode reads and decodes one image. Returns the decoded image and
	// its format name.
	Decode(r io.Reader) (image.Image, string, error)
}

// ThumbnailProcessor generates listing thumbnails from cover images.
type ThumbnailProcessor interface {
	// GenerateThumbnail creates a JPEG thumbnail fitting within
	// maxWidth x maxHeight, preserving aspect ratio. Returns the
	// thumbnail bytes and the original dimensions.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

// ImagingProcessor implements ImageLoader and ThumbnailProcessor using
// the imaging library.
type ImagingProcessor struct{}

// NewImagingProcessor creates the production image loader and thumbnail
// processor.
func NewImagingProcessor() *ImagingProcessor {
	return &ImagingProcessor{}
}

// Decode decodes one image from r.
func (p *ImagingProcessor) Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// GenerateThumbnail decodes, fits and re-encodes one cover as a JPEG
// thumbnail.
func (p *ImagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, _, err := p.Decode(data)
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	thumbnail := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG, imaging.JPEGQuality(ThumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), originalWidth, originalHeight, nil
}
