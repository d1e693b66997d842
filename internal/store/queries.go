package store

import (
	"context"
	"errors"

	"bookmarket-service/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")
)

// Runner executes units of work against the persistent store.
// View runs fn without a transaction; WithTx commits only if fn returns nil.
type Runner interface {
	View(ctx context.Context, fn func(q Queries) error) error
	WithTx(ctx context.Context, fn func(q Queries) error) error
}

// NegotiationFilter narrows a negotiation lookup. Empty fields match anything.
type NegotiationFilter struct {
	OfferedBy   string
	OfferStatus string
}

// Matches reports whether n satisfies the filter
func (f NegotiationFilter) Matches(n *models.Negotiation) bool {
	if f.OfferedBy != "" && n.OfferedBy != f.OfferedBy {
		return false
	}
	if f.OfferStatus != "" && n.OfferStatus != f.OfferStatus {
		return false
	}
	return true
}

// BookQuery describes a catalog search over available books
type BookQuery struct {
	Text        string
	CourseMajor string
	Limit       int
	Offset      int
}

// Queries is every row-level operation the services rely on
type Queries interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateSubmission(ctx context.Context, sub *models.Submission) error
	GetSubmission(ctx context.Context, id int64) (*models.Submission, error)
	GetSubmissionForUpdate(ctx context.Context, id int64) (*models.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id int64, status string, adminUserID *int64) error
	ListSubmissionsByUser(ctx context.Context, userID int64) ([]models.Submission, error)
	ListSubmissionsByStatus(ctx context.Context, status string) ([]models.Submission, error)

	CreateNegotiation(ctx context.Context, n *models.Negotiation) error
	GetNegotiation(ctx context.Context, id int64) (*models.Negotiation, error)
	UpdateNegotiationStatus(ctx context.Context, id int64, status string) error
	LatestNegotiation(ctx context.Context, submissionID int64, filter NegotiationFilter) (*models.Negotiation, error)
	CountNegotiations(ctx context.Context, submissionID int64, filter NegotiationFilter) (int, error)
	RejectPendingOffers(ctx context.Context, submissionID int64, offeredBy string) (int64, error)
	ListNegotiations(ctx context.Context, submissionID int64) ([]models.Negotiation, error)

	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	GetBooksForUpdate(ctx context.Context, ids []int64) ([]models.Book, error)
	BookExistsForSubmission(ctx context.Context, submissionID int64) (bool, error)
	UpdateBookStatus(ctx context.Context, id int64, status string) error
	MarkBooksSold(ctx context.Context, ids []int64) (int64, error)
	SearchBooks(ctx context.Context, q BookQuery) ([]models.Book, int, error)

	ListCartItems(ctx context.Context, userID int64) ([]models.CartItem, error)
	AddCartItem(ctx context.Context, userID, bookID int64) error
	RemoveCartItem(ctx context.Context, userID, bookID int64) error
	ClearCart(ctx context.Context, userID int64) (int64, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	CreateOrderLineItem(ctx context.Context, item *models.OrderLineItem) error
	ListOrderLineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)

	CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id int64) error

	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}
