package service

import (
	"context"
	"strings"
	"time"

	"bookmarket-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher publishes domain events after their transaction commits
type EventPublisher interface {
	PublishSubmissionEvent(ctx context.Context, event *models.SubmissionEvent) error
	PublishOfferMade(ctx context.Context, event *models.OfferMadeEvent) error
	PublishSubmissionCompleted(ctx context.Context, event *models.SubmissionCompletedEvent) error
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishBookRestocked(ctx context.Context, event *models.BookRestockedEvent) error
}

// BookCache holds book detail reads. GetBook returns nil without error on a miss.
type BookCache interface {
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	SetBook(ctx context.Context, book *models.Book) error
	InvalidateBooks(ctx context.Context, ids ...int64) error
}

type nopPublisher struct{}

func (nopPublisher) PublishSubmissionEvent(context.Context, *models.SubmissionEvent) error {
	return nil
}

func (nopPublisher) PublishOfferMade(context.Context, *models.OfferMadeEvent) error {
	return nil
}

func (nopPublisher) PublishSubmissionCompleted(context.Context, *models.SubmissionCompletedEvent) error {
	return nil
}

func (nopPublisher) PublishOrderPlaced(context.Context, *models.OrderPlacedEvent) error {
	return nil
}

func (nopPublisher) PublishBookRestocked(context.Context, *models.BookRestockedEvent) error {
	return nil
}

// NopPublisher discards every event
var NopPublisher EventPublisher = nopPublisher{}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher
	}
	return p
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

var maxPrice = decimal.RequireFromString("99999999.99")

// validatePrice enforces a positive amount with at most two decimal places
func validatePrice(field string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalidInput("%s must be greater than 0", field)
	}
	if !price.Equal(price.Round(2)) {
		return invalidInput("%s must have at most two decimal places", field)
	}
	if price.GreaterThan(maxPrice) {
		return invalidInput("%s exceeds the maximum of %s", field, maxPrice.StringFixed(2))
	}
	return nil
}

var conditions = map[string]string{
	"NEW":  models.ConditionNew,
	"GOOD": models.ConditionGood,
	"FAIR": models.ConditionFair,
}

// normalizeCondition maps user input onto a stored physical condition
func normalizeCondition(raw string) (string, error) {
	c, ok := conditions[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", invalidInput("physical condition must be one of New, Good, Fair")
	}
	return c, nil
}

// BookFields is the bibliographic part shared by submissions and books
type BookFields struct {
	ISBN              string  `json:"isbn" binding:"required"`
	Title             string  `json:"title" binding:"required"`
	Author            string  `json:"author" binding:"required"`
	Edition           string  `json:"edition" binding:"required"`
	PhysicalCondition string  `json:"physical_condition" binding:"required"`
	CourseMajor       *string `json:"course_major,omitempty"`
}

// normalize trims every field and validates the required ones
func (f *BookFields) normalize() error {
	f.ISBN = strings.TrimSpace(f.ISBN)
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Edition = strings.TrimSpace(f.Edition)

	required := []struct{ name, val string }{
		{"isbn", f.ISBN},
		{"title", f.Title},
		{"author", f.Author},
		{"edition", f.Edition},
	}
	for _, r := range required {
		if r.val == "" {
			return invalidInput("%s is required", r.name)
		}
	}

	cond, err := normalizeCondition(f.PhysicalCondition)
	if err != nil {
		return err
	}
	f.PhysicalCondition = cond

	if f.CourseMajor != nil {
		major := strings.TrimSpace(*f.CourseMajor)
		if major == "" {
			f.CourseMajor = nil
		} else {
			f.CourseMajor = &major
		}
	}
	return nil
}

func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
