package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quireapp/quire/internal/cover"
	"github.com/quireapp/quire/internal/domain"
	"github.com/quireapp/quire/internal/repository"
	"github.com/quireapp/quire/internal/storage"
	"github.com/quireapp/quire/internal/worker"
)

// fakeRepo implements BookRepository in memory.
type fakeRepo struct {
	books    []domain.Book
	created  []domain.CreateBookParams
	enqueued []repository.EnqueueJobParams
}

func (f *fakeRepo) CreateBook(ctx context.Context, p domain.CreateBookParams) (domain.Book, error) {
	if err := p.Validate(); err != nil {
		return domain.Book{}, err
	}
	f.created = append(f.created, p)
	b := domain.Book{
		ID:               uuid.New(),
		Title:            p.Title,
		Author:           p.Author,
		ISBN:             p.ISBN,
		CoverKey:         p.CoverKey,
		FallbackCoverURL: p.FallbackCoverURL,
		CoverWidth:       p.CoverWidth,
		CoverHeight:      p.CoverHeight,
		CoverHighRes:     p.CoverHighRes,
		AnalysisStatus:   domain.CoverAnalysisStatusPending,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	f.books = append(f.books, b)
	return b, nil
}

func (f *fakeRepo) GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	for _, b := range f.books {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Book{}, domain.NotFound("book.get", "book", id.String())
}

func (f *fakeRepo) ListBooks(ctx context.Context, limit, offset int32) ([]domain.Book, error) {
	return f.books, nil
}

func (f *fakeRepo) UpdateBookCoverAnalysis(ctx context.Context, p repository.UpdateBookCoverAnalysisParams) error {
	for i, b := range f.books {
		if b.ID == p.ID {
			f.books[i].CoverGrayscale = p.Grayscale
			f.books[i].AnalysisStatus = p.Status
			return nil
		}
	}
	return domain.NotFound("book.update_cover_analysis", "book", p.ID.String())
}

func (f *fakeRepo) EnqueueJob(ctx context.Context, p repository.EnqueueJobParams) (uuid.UUID, error) {
	f.enqueued = append(f.enqueued, p)
	return uuid.New(), nil
}

// fakeStorage implements storage.Storage in memory.
type fakeStorage struct {
	puts    map[string][]byte
	putErr  error
	lastOpt storage.PutOptions
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{puts: make(map[string][]byte)}
}

func (f *fakeStorage) Put(ctx context.Context, key string, data io.Reader, opts storage.PutOptions) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.puts[key] = b
	f.lastOpt = opts
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	b, ok := f.puts[key]
	if !ok {
		return nil, storage.ObjectInfo{}, &storage.StorageError{Op: "get", Key: key, Err: storage.ErrNotFound}
	}
	return io.NopCloser(strings.NewReader(string(b))), storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.puts, key)
	return nil
}

func (f *fakeStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "http://cdn.test/files/" + key, nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.puts[key]
	return ok, nil
}

func newTestService(repo *fakeRepo, store *fakeStorage) *BookService {
	cfg := cover.DefaultConfig()
	cfg.StorageBaseURL = "http://cdn.test/files"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBookService(repo, store, NewImagingProcessor(), cfg, logger)
}

func TestBookService_Create_NormalizesTitle(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())

	// "é" as combining sequence (U+0065 U+0301) should normalize to the
	// precomposed form (U+00E9).
	decomposed := "Amélie"
	book, err := svc.Create(context.Background(), domain.CreateBookParams{Title: decomposed})
	require.NoError(t, err)

	assert.Equal(t, "Amélie", book.Title)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Amélie", repo.created[0].Title)
}

func TestBookService_Create_EnqueuesAnalysisForStoredCover(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())

	_, err := svc.Create(context.Background(), domain.CreateBookParams{
		Title:    "Dune",
		CoverKey: "covers/dune.jpg",
	})
	require.NoError(t, err)

	require.Len(t, repo.enqueued, 1)
	assert.Equal(t, worker.JobTypeAnalyzeCover, repo.enqueued[0].JobType)
}

func TestBookService_Create_NoAnalysisForExternalCover(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())

	_, err := svc.Create(context.Background(), domain.CreateBookParams{
		Title:    "Dune",
		CoverKey: "https://covers.example.com/dune.jpg",
	})
	require.NoError(t, err)

	assert.Empty(t, repo.enqueued)
}

func TestBookService_UploadCover(t *testing.T) {
	repo := &fakeRepo{}
	store := newFakeStorage()
	svc := newTestService(repo, store)

	book, err := svc.Create(context.Background(), domain.CreateBookParams{Title: "Dune"})
	require.NoError(t, err)

	key, err := svc.UploadCover(context.Background(), book.ID, "dune.png", "image/png", strings.NewReader("fake png bytes"))
	require.NoError(t, err)

	assert.Equal(t, "covers/"+book.ID.String()+".png", key)
	assert.Contains(t, store.puts, key)
	assert.True(t, store.lastOpt.Overwrite)
	assert.Equal(t, int64(domain.MaxCoverSize), store.lastOpt.MaxSize)
}

func TestBookService_UploadCover_RejectsUnsupportedType(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())

	book, err := svc.Create(context.Background(), domain.CreateBookParams{Title: "Dune"})
	require.NoError(t, err)

	_, err = svc.UploadCover(context.Background(), book.ID, "dune.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestBookService_UploadCover_MapsTooLarge(t *testing.T) {
	repo := &fakeRepo{}
	store := newFakeStorage()
	store.putErr = &storage.StorageError{Op: "put", Key: "covers/x.jpg", Err: storage.ErrTooLarge}
	svc := newTestService(repo, store)

	book, err := svc.Create(context.Background(), domain.CreateBookParams{Title: "Dune"})
	require.NoError(t, err)

	_, err = svc.UploadCover(context.Background(), book.ID, "dune.jpg", "image/jpeg", strings.NewReader("big"))
	require.Error(t, err)
	assert.Equal(t, domain.ETOOLARGE, domain.ErrorCode(err))
}

func TestBookService_ListRanked_BestCoverFirst(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())
	ctx := context.Background()

	// Fallback-only book: estimated 400x600, standard tier.
	standard, err := svc.Create(ctx, domain.CreateBookParams{
		Title:            "Standard",
		FallbackCoverURL: "https://covers.example.com/standard.jpg",
	})
	require.NoError(t, err)

	// Internally stored high-resolution cover, the top tier.
	best, err := svc.Create(ctx, domain.CreateBookParams{
		Title:       "Best",
		CoverKey:    "covers/best.jpg",
		CoverWidth:  800,
		CoverHeight: 1200,
	})
	require.NoError(t, err)

	// No cover at all resolves to the placeholder, the bottom tier.
	worst, err := svc.Create(ctx, domain.CreateBookParams{Title: "Worst"})
	require.NoError(t, err)

	ranked, err := svc.ListRanked(ctx, ListRankedParams{Limit: 50})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, best.ID, ranked[0].Book.ID)
	assert.Equal(t, cover.TierHighResInternal, ranked[0].Tier)
	assert.Equal(t, standard.ID, ranked[1].Book.ID)
	assert.Equal(t, cover.TierStandard, ranked[1].Tier)
	assert.Equal(t, worst.ID, ranked[2].Book.ID)
	assert.Equal(t, cover.TierNone, ranked[2].Tier)
}

func TestBookService_ListRanked_InsertionOrderBreaksTies(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())
	ctx := context.Background()

	// Identical cover knowledge; only creation order distinguishes them.
	var ids []uuid.UUID
	for _, title := range []string{"Zeta", "Alpha", "Mid"} {
		b, err := svc.Create(ctx, domain.CreateBookParams{
			Title:            title,
			FallbackCoverURL: "https://covers.example.com/same.jpg",
		})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	ranked, err := svc.ListRanked(ctx, ListRankedParams{Limit: 50})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	for i, rb := range ranked {
		assert.Equal(t, ids[i], rb.Book.ID)
	}
}

func TestBookService_ListRanked_CustomTieBreak(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStorage())
	ctx := context.Background()

	a, err := svc.Create(ctx, domain.CreateBookParams{
		Title:            "Apple",
		FallbackCoverURL: "https://covers.example.com/same.jpg",
	})
	require.NoError(t, err)

	z, err := svc.Create(ctx, domain.CreateBookParams{
		Title:            "Zebra",
		FallbackCoverURL: "https://covers.example.com/same.jpg",
	})
	require.NoError(t, err)

	// Reverse-alphabetical custom key outranks insertion order.
	ranked, err := svc.ListRanked(ctx, ListRankedParams{
		Limit: 50,
		CustomTieBreak: func(x, y cover.RankItem) int {
			return strings.Compare(y.Title, x.Title)
		},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, z.ID, ranked[0].Book.ID)
	assert.Equal(t, a.ID, ranked[1].Book.ID)
}
