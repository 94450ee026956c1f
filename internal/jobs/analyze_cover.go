// Package jobs contains the background job handlers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quireapp/quire/internal/cover"
	"github.com/quireapp/quire/internal/domain"
	"github.com/quireapp/quire/internal/metrics"
	"github.com/quireapp/quire/internal/repository"
	"github.com/quireapp/quire/internal/service"
	"github.com/quireapp/quire/internal/storage"
	"github.com/quireapp/quire/internal/worker"
)

// AnalyzeCoverHandler processes jobs that classify a stored cover image
// as grayscale or color. The result feeds the quality scorer, which caps
// grayscale covers below the high tiers.
type AnalyzeCoverHandler struct {
	queries  *repository.Queries
	storage  storage.Storage
	loader   service.ImageLoader
	analyzer *cover.GrayscaleAnalyzer
	logger   *slog.Logger
}

// NewAnalyzeCoverHandler creates a new handler for cover analysis jobs.
func NewAnalyzeCoverHandler(
	queries *repository.Queries,
	store storage.Storage,
	loader service.ImageLoader,
	coverCfg cover.Config,
	logger *slog.Logger,
) *AnalyzeCoverHandler {
	return &AnalyzeCoverHandler{
		queries:  queries,
		storage:  store,
		loader:   loader,
		analyzer: cover.NewGrayscaleAnalyzer(coverCfg),
		logger:   logger,
	}
}

// Type returns the job type identifier.
func (h *AnalyzeCoverHandler) Type() string {
	return worker.JobTypeAnalyzeCover
}

// Handle executes one cover analysis job: fetch the book, download its
// stored cover, decode it, classify it, and persist the result.
func (h *AnalyzeCoverHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.AnalyzeCoverPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	logger := h.logger.With("book_id", p.BookID)
	logger.Info("Analyzing cover")

	book, err := h.queries.GetBook(ctx, p.BookID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			// Book deleted between enqueue and execution
			return worker.NewPermanentError(fmt.Errorf("book not found: %w", err))
		}
		return fmt.Errorf("fetch book: %w", err)
	}

	if !book.HasStoredCover() {
		// External or missing cover, nothing to analyze. Record the
		// skip so the job is not re-enqueued on the next save.
		logger.Info("No stored cover, skipping analysis")
		metrics.CoverAnalyzed("skipped")
		return h.saveResult(ctx, book, false, domain.CoverAnalysisStatusSkipped)
	}

	grayscale, err := h.classifyCover(ctx, book, logger)
	if err != nil {
		metrics.CoverAnalyzed("failed")
		var permErr *worker.PermanentError
		if errors.As(err, &permErr) {
			// Record the failure before giving up so the book is not
			// stuck pending forever.
			if saveErr := h.saveResult(ctx, book, false, domain.CoverAnalysisStatusFailed); saveErr != nil {
				logger.Error("Failed to record analysis failure", "error", saveErr)
			}
		}
		return err
	}

	logger.Info("Cover analysis completed", "grayscale", grayscale)
	if grayscale {
		metrics.CoverAnalyzed("grayscale")
	} else {
		metrics.CoverAnalyzed("color")
	}
	return h.saveResult(ctx, book, grayscale, domain.CoverAnalysisStatusCompleted)
}

// classifyCover downloads and decodes the stored cover, then runs the
// grayscale classifier on it.
func (h *AnalyzeCoverHandler) classifyCover(ctx context.Context, book domain.Book, logger *slog.Logger) (bool, error) {
	reader, info, err := h.storage.Get(ctx, book.CoverKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return false, worker.NewPermanentError(fmt.Errorf("cover object missing: %w", err))
		}
		// Storage hiccup, retryable
		return false, fmt.Errorf("download cover: %w", err)
	}
	defer reader.Close()

	img, format, err := h.loader.Decode(reader)
	if err != nil {
		// Corrupt or unsupported bytes will not improve on retry
		return false, worker.NewPermanentError(fmt.Errorf("decode cover: %w", err))
	}

	logger.Debug("Decoded cover",
		"format", format,
		"content_type", info.ContentType,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
	)

	return h.analyzer.IsEffectivelyGrayscale(img), nil
}

// saveResult persists the analysis outcome on the book row.
func (h *AnalyzeCoverHandler) saveResult(ctx context.Context, book domain.Book, grayscale bool, status domain.CoverAnalysisStatus) error {
	err := h.queries.UpdateBookCoverAnalysis(ctx, repository.UpdateBookCoverAnalysisParams{
		ID:        book.ID,
		Grayscale: grayscale,
		Status:    status,
	})
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return worker.NewPermanentError(fmt.Errorf("book gone during analysis: %w", err))
		}
		return fmt.Errorf("save analysis result: %w", err)
	}
	return nil
}
