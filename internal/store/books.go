package store

import (
	"context"

	"bookmarket-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateBook inserts a book into inventory
func (q *queries) CreateBook(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (submission_id, isbn, title, author, edition, physical_condition, course_major, selling_price, acquisition_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return q.get(ctx, book, query,
		book.SubmissionID, book.ISBN, book.Title, book.Author, book.Edition, book.PhysicalCondition,
		book.CourseMajor, book.SellingPrice, book.AcquisitionCost, book.Status)
}

// GetBook retrieves a book by ID
func (q *queries) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	if err := q.get(ctx, &book, "SELECT * FROM books WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBooksForUpdate retrieves and row-locks books in ID order.
// Locking in a stable order keeps concurrent checkouts from deadlocking.
func (q *queries) GetBooksForUpdate(ctx context.Context, ids []int64) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM books WHERE id IN (?) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, err
	}
	query = q.db.Rebind(query)

	books := []models.Book{}
	err = q.selectAll(ctx, &books, query, args...)
	return books, err
}

// BookExistsForSubmission reports whether a submission has already produced a book
func (q *queries) BookExistsForSubmission(ctx context.Context, submissionID int64) (bool, error) {
	var exists bool
	err := q.get(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM books WHERE submission_id = $1)", submissionID)
	return exists, err
}

// UpdateBookStatus updates a single book's status
func (q *queries) UpdateBookStatus(ctx context.Context, id int64, status string) error {
	return q.execOne(ctx,
		"UPDATE books SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
}

// MarkBooksSold flips available books to sold and returns how many changed.
// Books that are not available are left alone, so a short count means a lost race.
func (q *queries) MarkBooksSold(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"UPDATE books SET status = ?, updated_at = NOW() WHERE id IN (?) AND status = ?",
		models.BookStatusSold, ids, models.BookStatusAvailable)
	if err != nil {
		return 0, err
	}
	return q.exec(ctx, q.db.Rebind(query), args...)
}

// SearchBooks pages through available books matching the query
func (q *queries) SearchBooks(ctx context.Context, bq BookQuery) ([]models.Book, int, error) {
	where := `status = $1
		AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR author ILIKE '%' || $2 || '%' OR isbn = $2)
		AND ($3 = '' OR course_major = $3)`

	var total int
	if err := q.get(ctx, &total, "SELECT COUNT(*) FROM books WHERE "+where,
		models.BookStatusAvailable, bq.Text, bq.CourseMajor); err != nil {
		return nil, 0, err
	}

	books := []models.Book{}
	err := q.selectAll(ctx, &books,
		"SELECT * FROM books WHERE "+where+" ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5",
		models.BookStatusAvailable, bq.Text, bq.CourseMajor, bq.Limit, bq.Offset)
	return books, total, err
}
