package service

import (
	"context"
	"fmt"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogSync keeps the book cache in line with committed inventory changes.
// Each event is applied at most once, tracked in the processed events table.
type CatalogSync struct {
	store  store.Runner
	cache  BookCache
	logger *zap.Logger
}

// NewCatalogSync creates a new catalog sync handler
func NewCatalogSync(store store.Runner, cache BookCache) *CatalogSync {
	return &CatalogSync{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// HandleSubmissionCompleted warms the cache with a newly listed book
func (cs *CatalogSync) HandleSubmissionCompleted(ctx context.Context, event *models.SubmissionCompletedEvent) error {
	ctx, span := util.StartSpan(ctx, "CatalogSync.HandleSubmissionCompleted", attribute.Int64("book_id", event.BookID))
	defer span.End()

	return cs.once(ctx, event.BaseEvent, func() error {
		var book *models.Book
		err := cs.store.View(ctx, func(q store.Queries) error {
			var err error
			book, err = q.GetBook(ctx, event.BookID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to load book %d: %w", event.BookID, err)
		}
		return cs.cache.SetBook(ctx, book)
	})
}

// HandleOrderPlaced evicts the books an order sold
func (cs *CatalogSync) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "CatalogSync.HandleOrderPlaced", attribute.Int64("order_id", event.OrderID))
	defer span.End()

	return cs.once(ctx, event.BaseEvent, func() error {
		return cs.cache.InvalidateBooks(ctx, event.BookIDs...)
	})
}

// HandleBookRestocked evicts a book that went back on sale
func (cs *CatalogSync) HandleBookRestocked(ctx context.Context, event *models.BookRestockedEvent) error {
	ctx, span := util.StartSpan(ctx, "CatalogSync.HandleBookRestocked", attribute.Int64("book_id", event.BookID))
	defer span.End()

	return cs.once(ctx, event.BaseEvent, func() error {
		return cs.cache.InvalidateBooks(ctx, event.BookID)
	})
}

func (cs *CatalogSync) once(ctx context.Context, base models.BaseEvent, apply func() error) error {
	var processed bool
	err := cs.store.View(ctx, func(q store.Queries) error {
		var err error
		processed, err = q.IsEventProcessed(ctx, base.EventID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		cs.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	if err := apply(); err != nil {
		return fmt.Errorf("failed to apply %s: %w", base.EventType, err)
	}

	err = cs.store.WithTx(ctx, func(q store.Queries) error {
		return q.MarkEventProcessed(ctx, base.EventID, base.EventType)
	})
	if err != nil {
		cs.logger.Error("Failed to mark event processed", zap.String("event_id", base.EventID), zap.Error(err))
	}

	cs.logger.Debug("Catalog event applied",
		zap.String("event_id", base.EventID),
		zap.String("event_type", base.EventType))
	return nil
}
