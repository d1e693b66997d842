package service

import (
	"context"
	"fmt"
	"strings"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogService serves the storefront inventory
type CatalogService struct {
	store          store.Runner
	cache          BookCache
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(store store.Runner, cache BookCache, eventPublisher EventPublisher) *CatalogService {
	return &CatalogService{
		store:          store,
		cache:          cache,
		eventPublisher: publisherOrNop(eventPublisher),
		logger:         util.GetLogger(),
	}
}

// SearchRequest is a storefront query
type SearchRequest struct {
	Query       string `form:"q"`
	CourseMajor string `form:"course_major"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// SearchResult is one page of available books
type SearchResult struct {
	Books    []models.Book `json:"books"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// CreateBookRequest lists a book directly, without a submission
type CreateBookRequest struct {
	BookFields
	SellingPrice    decimal.Decimal `json:"selling_price"`
	AcquisitionCost decimal.Decimal `json:"acquisition_cost"`
}

// SearchBooks returns available books matching the request
func (s *CatalogService) SearchBooks(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	page, size := req.Page, req.PageSize
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = defaultPageSize
	}
	if page < 1 {
		return nil, invalidInput("page must be at least 1")
	}
	if size < 1 || size > maxPageSize {
		return nil, invalidInput("page_size must be between 1 and %d", maxPageSize)
	}

	query := store.BookQuery{
		Text:        strings.TrimSpace(req.Query),
		CourseMajor: strings.TrimSpace(req.CourseMajor),
		Limit:       size,
		Offset:      (page - 1) * size,
	}

	result := &SearchResult{Page: page, PageSize: size}
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		result.Books, result.Total, err = q.SearchBooks(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return result, nil
}

// GetBook returns a book, reading through the cache when one is configured
func (s *CatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	if s.cache != nil {
		cached, err := s.cache.GetBook(ctx, id)
		if err != nil {
			s.logger.Warn("Book cache read failed", zap.Int64("book_id", id), zap.Error(err))
		}
		if cached != nil {
			util.BookCacheRequests.WithLabelValues("hit").Inc()
			return cached, nil
		}
		util.BookCacheRequests.WithLabelValues("miss").Inc()
	}

	var book *models.Book
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		book, err = q.GetBook(ctx, id)
		if err != nil {
			return lookupErr(err, "book", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBook(ctx, book); err != nil {
			s.logger.Warn("Book cache write failed", zap.Int64("book_id", id), zap.Error(err))
		}
	}
	return book, nil
}

// CreateBook lists a staff-supplied book as available
func (s *CatalogService) CreateBook(ctx context.Context, adminUserID int64, req *CreateBookRequest) (*models.Book, error) {
	if err := req.BookFields.normalize(); err != nil {
		return nil, err
	}
	if err := validatePrice("selling price", req.SellingPrice); err != nil {
		return nil, err
	}
	if err := validatePrice("acquisition cost", req.AcquisitionCost); err != nil {
		return nil, err
	}
	if !req.SellingPrice.GreaterThan(req.AcquisitionCost) {
		return nil, invalidInput("selling price must be greater than acquisition cost")
	}

	book := &models.Book{
		ISBN:              req.ISBN,
		Title:             req.Title,
		Author:            req.Author,
		Edition:           req.Edition,
		PhysicalCondition: req.PhysicalCondition,
		CourseMajor:       req.CourseMajor,
		SellingPrice:      req.SellingPrice,
		AcquisitionCost:   req.AcquisitionCost,
		Status:            models.BookStatusAvailable,
	}
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		return q.CreateBook(ctx, book)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.logger.Info("Book listed",
		zap.Int64("book_id", book.ID),
		zap.Int64("admin_user_id", adminUserID),
		zap.String("selling_price", book.SellingPrice.StringFixed(2)))
	return book, nil
}

// RestockBook puts a sold copy back on sale, e.g. after a return
func (s *CatalogService) RestockBook(ctx context.Context, id int64) (*models.Book, error) {
	var book *models.Book
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		books, err := q.GetBooksForUpdate(ctx, []int64{id})
		if err != nil {
			return fmt.Errorf("failed to lock book: %w", err)
		}
		if len(books) == 0 {
			return notFound("book %d not found", id)
		}
		book = &books[0]
		if book.Status != models.BookStatusSold {
			return invalidOperation("book %d is already %s", id, book.Status)
		}
		if err := q.UpdateBookStatus(ctx, id, models.BookStatusAvailable); err != nil {
			return fmt.Errorf("failed to restock book: %w", err)
		}
		book.Status = models.BookStatusAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book restocked", zap.Int64("book_id", id))

	if s.cache != nil {
		if err := s.cache.InvalidateBooks(ctx, id); err != nil {
			s.logger.Warn("Book cache invalidation failed", zap.Int64("book_id", id), zap.Error(err))
		}
	}
	event := &models.BookRestockedEvent{
		BaseEvent: newBaseEvent(models.EventTypeBookRestocked),
		BookID:    id,
	}
	if err := s.eventPublisher.PublishBookRestocked(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookRestocked event", zap.Error(err))
	}
	return book, nil
}
