package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an authenticated account, either a customer or a staff member
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Submission is a customer's offer to sell a used book to the store
type Submission struct {
	ID                int64           `db:"id" json:"id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	AdminUserID       *int64          `db:"admin_user_id" json:"admin_user_id,omitempty"`
	ISBN              string          `db:"isbn" json:"isbn"`
	Title             string          `db:"title" json:"title"`
	Author            string          `db:"author" json:"author"`
	Edition           string          `db:"edition" json:"edition"`
	PhysicalCondition string          `db:"physical_condition" json:"physical_condition"`
	CourseMajor       *string         `db:"course_major" json:"course_major,omitempty"`
	AskingPrice       decimal.Decimal `db:"asking_price" json:"asking_price"`
	Status            string          `db:"status" json:"status"`
	SubmittedAt       time.Time       `db:"submitted_at" json:"submitted_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Submission statuses
const (
	SubmissionStatusPendingReview = "PENDING_REVIEW"
	SubmissionStatusApproved      = "APPROVED"
	SubmissionStatusRejected      = "REJECTED"
	SubmissionStatusCompleted     = "COMPLETED"
)

// Negotiation is one price offer within a submission's negotiation history
type Negotiation struct {
	ID           int64           `db:"id" json:"id"`
	SubmissionID int64           `db:"submission_id" json:"submission_id"`
	OfferedBy    string          `db:"offered_by" json:"offered_by"`
	OfferedPrice decimal.Decimal `db:"offered_price" json:"offered_price"`
	OfferMessage *string         `db:"offer_message" json:"offer_message,omitempty"`
	OfferStatus  string          `db:"offer_status" json:"offer_status"`
	RoundNumber  int             `db:"round_number" json:"round_number"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Negotiation parties
const (
	OfferedByUser  = "USER"
	OfferedByAdmin = "ADMIN"
)

// Offer statuses
const (
	OfferStatusPending  = "PENDING"
	OfferStatusAccepted = "ACCEPTED"
	OfferStatusRejected = "REJECTED"
)

// Book is a sellable copy in the store's inventory
type Book struct {
	ID                int64           `db:"id" json:"id"`
	SubmissionID      *int64          `db:"submission_id" json:"submission_id,omitempty"`
	ISBN              string          `db:"isbn" json:"isbn"`
	Title             string          `db:"title" json:"title"`
	Author            string          `db:"author" json:"author"`
	Edition           string          `db:"edition" json:"edition"`
	PhysicalCondition string          `db:"physical_condition" json:"physical_condition"`
	CourseMajor       *string         `db:"course_major" json:"course_major,omitempty"`
	SellingPrice      decimal.Decimal `db:"selling_price" json:"selling_price"`
	AcquisitionCost   decimal.Decimal `db:"acquisition_cost" json:"acquisition_cost"`
	Status            string          `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Book statuses
const (
	BookStatusAvailable = "AVAILABLE"
	BookStatusSold      = "SOLD"
)

// Physical conditions
const (
	ConditionNew  = "NEW"
	ConditionGood = "GOOD"
	ConditionFair = "FAIR"
)

// CartItem is a book reference waiting in a user's cart
type CartItem struct {
	UserID       int64           `db:"user_id" json:"user_id"`
	BookID       int64           `db:"book_id" json:"book_id"`
	Title        string          `db:"title" json:"title"`
	Author       string          `db:"author" json:"author"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	BookStatus   string          `db:"book_status" json:"book_status"`
	AddedAt      time.Time       `db:"added_at" json:"added_at"`
}

// Order represents a customer purchase order
type Order struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status         string          `db:"status" json:"status"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	OrderDate      time.Time       `db:"order_date" json:"order_date"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderLineItem is one purchased book, priced at the moment of sale
type OrderLineItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	BookID      int64           `db:"book_id" json:"book_id"`
	ISBN        string          `db:"isbn" json:"isbn"`
	Title       string          `db:"title" json:"title"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
}

// Payment records the settlement of an order
type Payment struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"order_id"`
	PaymentMethodID *int64          `db:"payment_method_id" json:"payment_method_id,omitempty"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          string          `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// PaymentMethod is a saved card; only brand and last four digits are kept
type PaymentMethod struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	CardholderName string    `db:"cardholder_name" json:"cardholder_name"`
	Brand          string    `db:"brand" json:"brand"`
	Last4          string    `db:"last4" json:"last4"`
	ExpMonth       int       `db:"exp_month" json:"exp_month"`
	ExpYear        int       `db:"exp_year" json:"exp_year"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusNew        = "NEW"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusFulfilled  = "FULFILLED"
	OrderStatusCancelled  = "CANCELLED"
)

// Payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Identity is the authenticated caller behind a session token
type Identity struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsStaff reports whether the caller may act on behalf of the store
func (i *Identity) IsStaff() bool {
	return i != nil && i.Role == RoleAdmin
}
