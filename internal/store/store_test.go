package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"bookmarket-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRollback = errors.New("rollback")

// openTestStore connects to TEST_DATABASE_URL, migrated with migrations/001_init.sql and holding a user with id 1
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database")
	}
	s, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNegotiationRounds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(q Queries) error {
		sub := &models.Submission{
			UserID: 1, ISBN: "x", Title: "t", Author: "a", Edition: "1",
			PhysicalCondition: models.ConditionGood, AskingPrice: decimal.NewFromInt(30),
			Status: models.SubmissionStatusPendingReview,
		}
		require.NoError(t, q.CreateSubmission(ctx, sub))

		first := &models.Negotiation{SubmissionID: sub.ID, OfferedBy: models.OfferedByAdmin,
			OfferedPrice: decimal.NewFromInt(25), OfferStatus: models.OfferStatusPending, RoundNumber: 1}
		require.NoError(t, q.CreateNegotiation(ctx, first))

		second := &models.Negotiation{SubmissionID: sub.ID, OfferedBy: models.OfferedByAdmin,
			OfferedPrice: decimal.NewFromInt(26), OfferStatus: models.OfferStatusPending, RoundNumber: 2}
		assert.ErrorIs(t, q.CreateNegotiation(ctx, second), ErrDuplicate)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
}

func TestIdempotency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := "idempotent-key-456"

	err := s.WithTx(ctx, func(q Queries) error {
		order := &models.Order{UserID: 1, TotalAmount: decimal.Zero, Status: models.OrderStatusNew, IdempotencyKey: &key}
		require.NoError(t, q.CreateOrder(ctx, order))

		// Same key for the same user violates the unique constraint
		dup := &models.Order{UserID: 1, TotalAmount: decimal.Zero, Status: models.OrderStatusNew, IdempotencyKey: &key}
		assert.ErrorIs(t, q.CreateOrder(ctx, dup), ErrDuplicate)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
}
