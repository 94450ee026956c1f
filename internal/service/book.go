// Package service contains the business logic layer.
//
// This file implements the book service: catalog CRUD, cover upload, and
// the ranked listing that every rendering surface consumes.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/quireapp/quire/internal/cover"
	"github.com/quireapp/quire/internal/domain"
	"github.com/quireapp/quire/internal/metrics"
	"github.com/quireapp/quire/internal/repository"
	"github.com/quireapp/quire/internal/storage"
	"github.com/quireapp/quire/internal/worker"
)

// BookRepository is the slice of repository.Queries the book service
// needs. Narrow on purpose so tests can fake it.
type BookRepository interface {
	CreateBook(ctx context.Context, p domain.CreateBookParams) (domain.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error)
	ListBooks(ctx context.Context, limit, offset int32) ([]domain.Book, error)
	UpdateBookCoverAnalysis(ctx context.Context, p repository.UpdateBookCoverAnalysisParams) error
	EnqueueJob(ctx context.Context, p repository.EnqueueJobParams) (uuid.UUID, error)
}

// RankedBook is one entry of a ranked listing: the book plus its resolved
// cover and quality tier.
type RankedBook struct {
	Book  domain.Book
	Cover cover.ResolvedCover
	Tier  cover.QualityTier
}

// BookService implements catalog operations on top of the repository and
// the cover pipeline.
type BookService struct {
	repo       BookRepository
	store      storage.Storage
	thumbnails ThumbnailProcessor
	resolver   *cover.Resolver
	scorer     *cover.Scorer
	logger     *slog.Logger
}

// NewBookService creates a BookService.
func NewBookService(
	repo BookRepository,
	store storage.Storage,
	thumbnails ThumbnailProcessor,
	coverCfg cover.Config,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		repo:       repo,
		store:      store,
		thumbnails: thumbnails,
		resolver:   cover.NewResolver(coverCfg),
		scorer:     cover.NewScorer(coverCfg),
		logger:     logger,
	}
}

// Create validates and persists a new book, then queues cover analysis
// when the cover lives in our own storage.
func (s *BookService) Create(ctx context.Context, params domain.CreateBookParams) (domain.Book, error) {
	params.Title = norm.NFC.String(params.Title)
	params.Author = norm.NFC.String(params.Author)

	book, err := s.repo.CreateBook(ctx, params)
	if err != nil {
		return domain.Book{}, err
	}
	metrics.BooksCreated.Inc()

	if err := s.maybeEnqueueAnalysis(ctx, book); err != nil {
		// Analysis is best effort; the listing degrades to "not
		// grayscale" until a later pass catches up.
		s.logger.Warn("failed to enqueue cover analysis", "book_id", book.ID, "error", err)
	}

	return book, nil
}

// Get fetches one book by ID.
func (s *BookService) Get(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	return s.repo.GetBook(ctx, id)
}

// UploadCover stores new cover bytes for a book and queues re-analysis.
// The stored key becomes the book's cover via the next resolution.
func (s *BookService) UploadCover(ctx context.Context, bookID uuid.UUID, filename, contentType string, data io.Reader) (string, error) {
	detected := storage.DetectContentType(contentType, filename, nil)
	if !storage.IsAllowedCoverType(detected) {
		return "", domain.Invalid("book.upload_cover", fmt.Sprintf("unsupported cover type %q", detected))
	}

	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return "", err
	}

	raw, err := io.ReadAll(io.LimitReader(data, domain.MaxCoverSize+1))
	if err != nil {
		return "", domain.Internal(err, "book.upload_cover", "failed to read cover")
	}
	if int64(len(raw)) > domain.MaxCoverSize {
		return "", domain.Errorf(domain.ETOOLARGE, "book.upload_cover", "cover exceeds %d bytes", domain.MaxCoverSize)
	}

	key := storage.CoverKey(book.ID, filename)
	err = s.store.Put(ctx, key, bytes.NewReader(raw), storage.PutOptions{
		ContentType: detected,
		MaxSize:     domain.MaxCoverSize,
		Overwrite:   true,
		Public:      true,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			return "", domain.Errorf(domain.ETOOLARGE, "book.upload_cover", "cover exceeds %d bytes", domain.MaxCoverSize)
		}
		return "", domain.Internal(err, "book.upload_cover", "failed to store cover")
	}

	// A listing thumbnail sits next to the original. Best effort; the
	// full-size cover still serves if this fails.
	if err := s.storeThumbnail(ctx, book.ID, raw); err != nil {
		s.logger.Warn("failed to store cover thumbnail", "book_id", book.ID, "error", err)
	}

	book.CoverKey = key
	if err := s.maybeEnqueueAnalysis(ctx, book); err != nil {
		s.logger.Warn("failed to enqueue cover analysis", "book_id", book.ID, "error", err)
	}

	return key, nil
}

// ListRankedParams controls a ranked listing request.
type ListRankedParams struct {
	Limit  int32
	Offset int32

	// CustomTieBreak is an optional listing-specific ordering injected
	// between the structural keys and the stability keys, e.g. a
	// relevance score for search results.
	CustomTieBreak cover.CompareFunc
}

// ListRanked returns a page of books ordered best cover first. The
// repository's stable return order doubles as the ranker's insertion
// order, so repeated calls over the same rows always produce the same
// listing.
func (s *BookService) ListRanked(ctx context.Context, params ListRankedParams) ([]RankedBook, error) {
	books, err := s.repo.ListBooks(ctx, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedBook, len(books))
	items := make([]cover.RankItem, len(books))
	for i, b := range books {
		rc, tier := s.EvaluateCover(b)
		ranked[i] = RankedBook{Book: b, Cover: rc, Tier: tier}
		items[i] = cover.RankItem{ID: b.ID, Title: b.Title, Cover: rc, Tier: tier}
	}

	byID := make(map[uuid.UUID]RankedBook, len(ranked))
	for _, rb := range ranked {
		byID[rb.Book.ID] = rb
	}

	cover.Rank(items, params.CustomTieBreak)

	out := make([]RankedBook, len(items))
	for i, it := range items {
		out[i] = byID[it.ID]
	}
	return out, nil
}

// EvaluateCover runs the full cover pipeline for one book: resolve,
// validate, score. Pure; does not touch the book row.
func (s *BookService) EvaluateCover(b domain.Book) (cover.ResolvedCover, cover.QualityTier) {
	rc := s.resolver.Resolve(cover.CoverCandidate{
		Primary:          b.CoverKey,
		FallbackExternal: b.FallbackCoverURL,
		Width:            int(b.CoverWidth),
		Height:           int(b.CoverHeight),
		HighRes:          b.CoverHighRes,
	})

	reason, rejected := cover.RejectionReason(rc.URL)
	if rejected {
		metrics.CoverRejections.Inc()
		s.logger.Debug("cover rejected", "book_id", b.ID, "url", rc.URL, "reason", reason)
	}

	tier := s.scorer.Score(rc, !rejected, b.CoverGrayscale)

	metrics.CoverResolutions.WithLabelValues(resolutionSource(s.resolver, rc)).Inc()
	metrics.CoverTiers.WithLabelValues(tier.String()).Inc()

	return rc, tier
}

// storeThumbnail renders and stores the JPEG listing thumbnail for an
// uploaded cover.
func (s *BookService) storeThumbnail(ctx context.Context, bookID uuid.UUID, raw []byte) error {
	thumb, _, _, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(raw), ThumbnailMaxWidth, ThumbnailMaxHeight)
	if err != nil {
		return fmt.Errorf("generate thumbnail: %w", err)
	}

	return s.store.Put(ctx, storage.ThumbnailKey(bookID), bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
		Overwrite:   true,
		Public:      true,
	})
}

// maybeEnqueueAnalysis queues grayscale analysis for internally stored
// covers that have not been analyzed yet.
func (s *BookService) maybeEnqueueAnalysis(ctx context.Context, b domain.Book) error {
	if !b.HasStoredCover() {
		return nil
	}
	if b.AnalysisStatus == domain.CoverAnalysisStatusCompleted {
		return nil
	}

	payload, err := json.Marshal(worker.AnalyzeCoverPayload{BookID: b.ID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.repo.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:     worker.JobTypeAnalyzeCover,
		Payload:     payload,
		Priority:    worker.PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now().UTC(),
	})
	return err
}

// resolutionSource labels where a resolved cover came from, for metrics.
func resolutionSource(r *cover.Resolver, rc cover.ResolvedCover) string {
	switch {
	case rc.FromInternalStorage:
		return "internal"
	case r.IsPlaceholder(rc.URL):
		return "placeholder"
	default:
		return "external"
	}
}
