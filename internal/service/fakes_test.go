package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every published event type in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
	fail   bool
}

func (p *recordingPublisher) record(e interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishSubmissionEvent(_ context.Context, e *models.SubmissionEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishOfferMade(_ context.Context, e *models.OfferMadeEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishSubmissionCompleted(_ context.Context, e *models.SubmissionCompletedEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishBookRestocked(_ context.Context, e *models.BookRestockedEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		switch ev := e.(type) {
		case *models.SubmissionEvent:
			out = append(out, ev.EventType)
		case *models.OfferMadeEvent:
			out = append(out, ev.EventType)
		case *models.SubmissionCompletedEvent:
			out = append(out, ev.EventType)
		case *models.OrderPlacedEvent:
			out = append(out, ev.EventType)
		case *models.BookRestockedEvent:
			out = append(out, ev.EventType)
		}
	}
	return out
}

// fakeCache is an in-memory BookCache
type fakeCache struct {
	mu          sync.Mutex
	books       map[int64]models.Book
	invalidated []int64
	sets        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{books: map[int64]models.Book{}}
}

func (c *fakeCache) GetBook(_ context.Context, id int64) (*models.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (c *fakeCache) SetBook(_ context.Context, book *models.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[book.ID] = *book
	c.sets++
	return nil
}

func (c *fakeCache) InvalidateBooks(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.books, id)
	}
	c.invalidated = append(c.invalidated, ids...)
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "expected a typed failure, got %v", err)
	require.Equal(t, kind, got, err.Error())
}

// seedBook lists an available book directly in the store
func seedBook(t *testing.T, s store.Runner, title, selling string) *models.Book {
	t.Helper()
	book := &models.Book{
		ISBN:              "978-0-00-000000-0",
		Title:             title,
		Author:            "A. Author",
		Edition:           "1st",
		PhysicalCondition: models.ConditionGood,
		SellingPrice:      price(selling),
		AcquisitionCost:   price("1.00"),
		Status:            models.BookStatusAvailable,
	}
	require.NoError(t, s.WithTx(context.Background(), func(q store.Queries) error {
		return q.CreateBook(context.Background(), book)
	}))
	return book
}

func getBook(t *testing.T, s *memstore.Store, id int64) *models.Book {
	t.Helper()
	var book *models.Book
	require.NoError(t, s.View(context.Background(), func(q store.Queries) error {
		var err error
		book, err = q.GetBook(context.Background(), id)
		return err
	}))
	return book
}
