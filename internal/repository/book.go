package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quireapp/quire/internal/domain"
)

const bookColumns = `id, title, author, isbn,
	cover_key, fallback_cover_url, cover_width, cover_height, cover_high_res,
	cover_grayscale, analysis_status, created_at, updated_at`

func scanBook(row interface{ Scan(dest ...any) error }) (domain.Book, error) {
	var b domain.Book
	var status string
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN,
		&b.CoverKey, &b.FallbackCoverURL, &b.CoverWidth, &b.CoverHeight, &b.CoverHighRes,
		&b.CoverGrayscale, &status, &b.CreatedAt, &b.UpdatedAt,
	)
	b.AnalysisStatus = domain.CoverAnalysisStatus(status)
	return b, err
}

// CreateBook inserts a new book and returns it with generated fields.
func (q *Queries) CreateBook(ctx context.Context, p domain.CreateBookParams) (domain.Book, error) {
	if err := p.Validate(); err != nil {
		return domain.Book{}, err
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO books (id, title, author, isbn, cover_key, fallback_cover_url,
			cover_width, cover_height, cover_high_res)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+bookColumns,
		uuid.New(), p.Title, p.Author, p.ISBN, p.CoverKey, p.FallbackCoverURL,
		p.CoverWidth, p.CoverHeight, p.CoverHighRes,
	)

	b, err := scanBook(row)
	if err != nil {
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

// GetBook fetches one book by ID.
func (q *Queries) GetBook(ctx context.Context, id uuid.UUID) (domain.Book, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, domain.NotFound("book.get", "book", id.String())
	}
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// ListBooks returns a page of books in stable creation order. That order
// is what the ranker uses as insertion order, so it must not depend on
// anything mutable.
func (q *Queries) ListBooks(ctx context.Context, limit, offset int32) ([]domain.Book, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// UpdateBookCoverAnalysisParams carries the worker's analysis result.
type UpdateBookCoverAnalysisParams struct {
	ID        uuid.UUID
	Grayscale bool
	Status    domain.CoverAnalysisStatus
}

// UpdateBookCoverAnalysis persists the grayscale classification computed
// by the background worker.
func (q *Queries) UpdateBookCoverAnalysis(ctx context.Context, p UpdateBookCoverAnalysisParams) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books
		SET cover_grayscale = $2, analysis_status = $3, updated_at = $4
		WHERE id = $1`,
		p.ID, p.Grayscale, p.Status.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update cover analysis: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cover analysis: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("book.update_cover_analysis", "book", p.ID.String())
	}
	return nil
}
