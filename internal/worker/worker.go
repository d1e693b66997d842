package worker

import (
	"context"

	"bookmarket-service/internal/broker"
	"bookmarket-service/internal/service"
	"bookmarket-service/internal/util"

	"go.uber.org/zap"
)

// CatalogWorker consumes market events and keeps the book cache current
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewEventHandler wires the catalog sync handlers into an event dispatcher
func NewEventHandler(sync *service.CatalogSync) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSubmissionCompleted(sync.HandleSubmissionCompleted)
	eventHandler.OnOrderPlaced(sync.HandleOrderPlaced)
	eventHandler.OnBookRestocked(sync.HandleBookRestocked)

	return eventHandler
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, sync *service.CatalogSync) *CatalogWorker {
	return &CatalogWorker{
		consumer:     consumer,
		eventHandler: NewEventHandler(sync),
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming events until ctx is cancelled
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}
