package service

import (
	"context"
	"testing"
	"time"

	"bookmarket-service/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentMethodService() *PaymentMethodService {
	svc := NewPaymentMethodService(memstore.New())
	svc.now = func() time.Time { return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestAddPaymentMethod(t *testing.T) {
	svc := newPaymentMethodService()

	pm, err := svc.AddPaymentMethod(context.Background(), &AddPaymentMethodRequest{
		UserID: buyerID, CardholderName: " Ada Lovelace ", CardNumber: "4111-1111-1111-1111",
		ExpMonth: 6, ExpYear: 2025,
	})
	require.NoError(t, err)
	assert.Equal(t, "VISA", pm.Brand)
	assert.Equal(t, "1111", pm.Last4)
	assert.Equal(t, "Ada Lovelace", pm.CardholderName)
}

func TestAddPaymentMethodValidation(t *testing.T) {
	svc := newPaymentMethodService()

	tests := []struct {
		name string
		req  AddPaymentMethodRequest
	}{
		{"too short", AddPaymentMethodRequest{CardholderName: "x", CardNumber: "4111111", ExpMonth: 1, ExpYear: 2030}},
		{"letters", AddPaymentMethodRequest{CardholderName: "x", CardNumber: "4111abcd11111111", ExpMonth: 1, ExpYear: 2030}},
		{"luhn", AddPaymentMethodRequest{CardholderName: "x", CardNumber: "4111111111111112", ExpMonth: 1, ExpYear: 2030}},
		{"month", AddPaymentMethodRequest{CardholderName: "x", CardNumber: "4111111111111111", ExpMonth: 13, ExpYear: 2030}},
		{"expired", AddPaymentMethodRequest{CardholderName: "x", CardNumber: "4111111111111111", ExpMonth: 5, ExpYear: 2025}},
		{"no name", AddPaymentMethodRequest{CardholderName: " ", CardNumber: "4111111111111111", ExpMonth: 1, ExpYear: 2030}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.UserID = buyerID
			_, err := svc.AddPaymentMethod(context.Background(), &req)
			requireKind(t, err, KindInvalidInput)
		})
	}
}

func TestCardBrand(t *testing.T) {
	assert.Equal(t, "VISA", cardBrand("4111111111111111"))
	assert.Equal(t, "MASTERCARD", cardBrand("5555555555554444"))
	assert.Equal(t, "AMEX", cardBrand("378282246310005"))
	assert.Equal(t, "DISCOVER", cardBrand("6011111111111117"))
	assert.Equal(t, "CARD", cardBrand("3530111333300000"))
}

func TestDeletePaymentMethod(t *testing.T) {
	svc := newPaymentMethodService()
	ctx := context.Background()

	pm, err := svc.AddPaymentMethod(ctx, &AddPaymentMethodRequest{
		UserID: buyerID, CardholderName: "Ada", CardNumber: "378282246310005", ExpMonth: 1, ExpYear: 2030,
	})
	require.NoError(t, err)

	requireKind(t, svc.DeletePaymentMethod(ctx, otherBuyerID, pm.ID), KindForbidden)
	require.NoError(t, svc.DeletePaymentMethod(ctx, buyerID, pm.ID))
	requireKind(t, svc.DeletePaymentMethod(ctx, buyerID, pm.ID), KindNotFound)

	methods, err := svc.ListPaymentMethods(ctx, buyerID)
	require.NoError(t, err)
	assert.Empty(t, methods)
}
