package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quireapp/quire/internal/cover"
	"github.com/quireapp/quire/internal/domain"
	"github.com/quireapp/quire/internal/repository"
	"github.com/quireapp/quire/internal/service"
	"github.com/quireapp/quire/internal/storage"
)

type stubRepo struct {
	books []domain.Book
}

func (s *stubRepo) CreateBook(ctx context.Context, p domain.CreateBookParams) (domain.Book, error) {
	if err := p.Validate(); err != nil {
		return domain.Book{}, err
	}
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
	s.books = append(s.books, b)
	return b, nil
}

func (s *stubRepo) GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	for _, b := range s.books {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Book{}, domain.NotFound("book.get", "book", id.String())
}

func (s *stubRepo) ListBooks(ctx context.Context, limit, offset int32) ([]domain.Book, error) {
	return s.books, nil
}

func (s *stubRepo) UpdateBookCoverAnalysis(ctx context.Context, p repository.UpdateBookCoverAnalysisParams) error {
	return nil
}

func (s *stubRepo) EnqueueJob(ctx context.Context, p repository.EnqueueJobParams) (uuid.UUID, error) {
	return uuid.New(), nil
}

type stubStorage struct{}

func (stubStorage) Put(ctx context.Context, key string, data io.Reader, opts storage.PutOptions) error {
	return nil
}

func (stubStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	return nil, storage.ObjectInfo{}, &storage.StorageError{Op: "get", Key: key, Err: storage.ErrNotFound}
}

func (stubStorage) Delete(ctx context.Context, key string) error { return nil }

func (stubStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "http://cdn.test/files/" + key, nil
}

func (stubStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func newTestServer(repo *stubRepo) *httptest.Server {
	cfg := cover.DefaultConfig()
	cfg.StorageBaseURL = "http://cdn.test/files"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	books := service.NewBookService(repo, stubStorage{}, service.NewImagingProcessor(), cfg, logger)
	h := NewBookHandler(books, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func TestBookHandler_CreateAndGet(t *testing.T) {
	repo := &stubRepo{}
	srv := newTestServer(repo)
	defer srv.Close()

	body := `{"title":"Dune","author":"Frank Herbert","cover_key":"covers/dune.jpg","cover_width":800,"cover_height":1200}`
	resp, err := http.Post(srv.URL+"/books", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Cover struct {
			URL      string `json:"url"`
			Tier     int    `json:"tier"`
			TierName string `json:"tier_name"`
			Internal bool   `json:"internal"`
		} `json:"cover"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	assert.Equal(t, "Dune", created.Title)
	assert.Equal(t, "http://cdn.test/files/covers/dune.jpg", created.Cover.URL)
	assert.True(t, created.Cover.Internal)
	assert.Equal(t, int(cover.TierHighResInternal), created.Cover.Tier)
	assert.Equal(t, "high_res_internal", created.Cover.TierName)

	getResp, err := http.Get(srv.URL + "/books/" + created.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestBookHandler_Create_InvalidBody(t *testing.T) {
	srv := newTestServer(&stubRepo{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/books", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookHandler_Create_MissingTitle(t *testing.T) {
	srv := newTestServer(&stubRepo{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/books", "application/json", strings.NewReader(`{"author":"Nobody"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookHandler_Get_NotFound(t *testing.T) {
	srv := newTestServer(&stubRepo{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/books/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookHandler_Get_InvalidID(t *testing.T) {
	srv := newTestServer(&stubRepo{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/books/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookHandler_List_RankedOrder(t *testing.T) {
	repo := &stubRepo{}
	srv := newTestServer(repo)
	defer srv.Close()

	post := func(body string) {
		resp, err := http.Post(srv.URL+"/books", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	post(`{"title":"No Cover"}`)
	post(`{"title":"Good Cover","cover_key":"covers/good.jpg","cover_width":800,"cover_height":1200}`)

	resp, err := http.Get(srv.URL + "/books")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Books []struct {
			Title string `json:"title"`
		} `json:"books"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Books, 2)

	// Better cover sorts first regardless of creation order.
	assert.Equal(t, "Good Cover", list.Books[0].Title)
	assert.Equal(t, "No Cover", list.Books[1].Title)
}

func TestBookHandler_List_RejectsBadPagination(t *testing.T) {
	srv := newTestServer(&stubRepo{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/books?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFromCode(tt.code), "code %q", tt.code)
	}
}
