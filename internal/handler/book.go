package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quireapp/quire/internal/domain"
	"github.com/quireapp/quire/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// BookHandler serves the /books JSON endpoints.
type BookHandler struct {
	books  *service.BookService
	logger *slog.Logger
}

// NewBookHandler creates a new book handler.
func NewBookHandler(books *service.BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger,
	}
}

// RegisterRoutes registers the book routes on the mux.
func (h *BookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /books", h.Create)
	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("GET /books/{id}", h.Get)
	mux.HandleFunc("PUT /books/{id}/cover", h.UploadCover)
}

// coverResponse is the resolved-and-scored cover as exposed over the API.
type coverResponse struct {
	URL        string `json:"url"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	HighRes    bool   `json:"high_res"`
	Internal   bool   `json:"internal"`
	Tier       int    `json:"tier"`
	TierName   string `json:"tier_name"`
	StorageKey string `json:"storage_key,omitempty"`
}

// bookResponse is one book as exposed over the API.
type bookResponse struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Author         string         `json:"author,omitempty"`
	ISBN           string         `json:"isbn,omitempty"`
	Cover          *coverResponse `json:"cover,omitempty"`
	AnalysisStatus string         `json:"analysis_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func toBookResponse(rb service.RankedBook) bookResponse {
	return bookResponse{
		ID:             rb.Book.ID.String(),
		Title:          rb.Book.Title,
		Author:         rb.Book.Author,
		ISBN:           rb.Book.ISBN,
		AnalysisStatus: rb.Book.AnalysisStatus.String(),
		CreatedAt:      rb.Book.CreatedAt,
		UpdatedAt:      rb.Book.UpdatedAt,
		Cover: &coverResponse{
			URL:        rb.Cover.URL,
			Width:      rb.Cover.Width,
			Height:     rb.Cover.Height,
			HighRes:    rb.Cover.HighRes,
			Internal:   rb.Cover.FromInternalStorage,
			Tier:       int(rb.Tier),
			TierName:   rb.Tier.String(),
			StorageKey: rb.Cover.StorageKey,
		},
	}
}

// createBookRequest is the POST /books body.
type createBookRequest struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	ISBN             string `json:"isbn"`
	CoverKey         string `json:"cover_key"`
	FallbackCoverURL string `json:"fallback_cover_url"`
	CoverWidth       int32  `json:"cover_width"`
	CoverHeight      int32  `json:"cover_height"`
	CoverHighRes     bool   `json:"cover_high_res"`
}

// Create handles POST /books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, domain.Invalid("handler.create_book", "invalid JSON body"))
		return
	}

	book, err := h.books.Create(r.Context(), domain.CreateBookParams{
		Title:            req.Title,
		Author:           req.Author,
		ISBN:             req.ISBN,
		CoverKey:         req.CoverKey,
		FallbackCoverURL: req.FallbackCoverURL,
		CoverWidth:       req.CoverWidth,
		CoverHeight:      req.CoverHeight,
		CoverHighRes:     req.CoverHighRes,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rc, tier := h.books.EvaluateCover(book)
	writeJSON(w, h.logger, http.StatusCreated, toBookResponse(service.RankedBook{
		Book:  book,
		Cover: rc,
		Tier:  tier,
	}))
}

// Get handles GET /books/{id}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, domain.Invalid("handler.get_book", "invalid book id"))
		return
	}

	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rc, tier := h.books.EvaluateCover(book)
	writeJSON(w, h.logger, http.StatusOK, toBookResponse(service.RankedBook{
		Book:  book,
		Cover: rc,
		Tier:  tier,
	}))
}

// listResponse is the GET /books body.
type listResponse struct {
	Books []bookResponse `json:"books"`
}

// List handles GET /books: a page of books ordered best cover first.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || offset < 0 {
		writeError(w, r, h.logger, domain.Invalid("handler.list_books", "limit and offset must be non-negative"))
		return
	}

	ranked, err := h.books.ListRanked(r.Context(), service.ListRankedParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := listResponse{Books: make([]bookResponse, len(ranked))}
	for i, rb := range ranked {
		resp.Books[i] = toBookResponse(rb)
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// uploadCoverResponse is the PUT /books/{id}/cover body.
type uploadCoverResponse struct {
	StorageKey string `json:"storage_key"`
}

// UploadCover handles PUT /books/{id}/cover. The request body is the raw
// image; the filename query parameter preserves the original extension.
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, domain.Invalid("handler.upload_cover", "invalid book id"))
		return
	}

	filename := r.URL.Query().Get("filename")
	contentType := r.Header.Get("Content-Type")

	key, err := h.books.UploadCover(r.Context(), id, filename, contentType, r.Body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, uploadCoverResponse{StorageKey: key})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
