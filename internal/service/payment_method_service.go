package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"go.uber.org/zap"
)

// PaymentMethodService stores customers' saved cards.
// Card numbers are validated and reduced to brand and last four digits;
// the full number is never persisted.
type PaymentMethodService struct {
	store  store.Runner
	logger *zap.Logger
	now    func() time.Time
}

// NewPaymentMethodService creates a new payment method service
func NewPaymentMethodService(store store.Runner) *PaymentMethodService {
	return &PaymentMethodService{
		store:  store,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// AddPaymentMethodRequest carries a card to save
type AddPaymentMethodRequest struct {
	UserID         int64  `json:"-"`
	CardholderName string `json:"cardholder_name" binding:"required"`
	CardNumber     string `json:"card_number" binding:"required"`
	ExpMonth       int    `json:"exp_month" binding:"required"`
	ExpYear        int    `json:"exp_year" binding:"required"`
}

// AddPaymentMethod validates and saves a card
func (s *PaymentMethodService) AddPaymentMethod(ctx context.Context, req *AddPaymentMethodRequest) (*models.PaymentMethod, error) {
	name := strings.TrimSpace(req.CardholderName)
	if name == "" {
		return nil, invalidInput("cardholder_name is required")
	}

	digits := strings.NewReplacer(" ", "", "-", "").Replace(req.CardNumber)
	if len(digits) < 12 || len(digits) > 19 || strings.Trim(digits, "0123456789") != "" {
		return nil, invalidInput("card number must be 12 to 19 digits")
	}
	if !luhnValid(digits) {
		return nil, invalidInput("card number is not valid")
	}

	if req.ExpMonth < 1 || req.ExpMonth > 12 {
		return nil, invalidInput("exp_month must be between 1 and 12")
	}
	now := s.now()
	if req.ExpYear < now.Year() || (req.ExpYear == now.Year() && req.ExpMonth < int(now.Month())) {
		return nil, invalidInput("card has expired")
	}

	pm := &models.PaymentMethod{
		UserID:         req.UserID,
		CardholderName: name,
		Brand:          cardBrand(digits),
		Last4:          digits[len(digits)-4:],
		ExpMonth:       req.ExpMonth,
		ExpYear:        req.ExpYear,
	}
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		return q.CreatePaymentMethod(ctx, pm)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save payment method: %w", err)
	}

	s.logger.Info("Payment method added",
		zap.Int64("user_id", pm.UserID),
		zap.Int64("payment_method_id", pm.ID),
		zap.String("brand", pm.Brand))
	return pm, nil
}

// ListPaymentMethods returns the user's saved cards
func (s *PaymentMethodService) ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		methods, err = q.ListPaymentMethods(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

// DeletePaymentMethod removes one of the user's saved cards
func (s *PaymentMethodService) DeletePaymentMethod(ctx context.Context, userID, id int64) error {
	return s.store.WithTx(ctx, func(q store.Queries) error {
		pm, err := q.GetPaymentMethod(ctx, id)
		if err != nil {
			return lookupErr(err, "payment method", id)
		}
		if pm.UserID != userID {
			return forbidden("payment method %d belongs to another user", id)
		}
		if err := q.DeletePaymentMethod(ctx, id); err != nil {
			return fmt.Errorf("failed to delete payment method: %w", err)
		}
		return nil
	})
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func cardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "VISA"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "AMEX"
	case digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "MASTERCARD"
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"):
		return "DISCOVER"
	default:
		return "CARD"
	}
}
