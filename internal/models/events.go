package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSubmissionCreated   = "SUBMISSION_CREATED"
	EventTypeOfferMade           = "OFFER_MADE"
	EventTypeSubmissionApproved  = "SUBMISSION_APPROVED"
	EventTypeSubmissionRejected  = "SUBMISSION_REJECTED"
	EventTypeSubmissionCompleted = "SUBMISSION_COMPLETED"
	EventTypeOrderPlaced         = "ORDER_PLACED"
	EventTypeBookRestocked       = "BOOK_RESTOCKED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SubmissionEvent is published on submission status changes that carry no extra payload
type SubmissionEvent struct {
	BaseEvent
	SubmissionID int64  `json:"submission_id"`
	UserID       int64  `json:"user_id"`
	AdminUserID  *int64 `json:"admin_user_id,omitempty"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

// OfferMadeEvent is published when either side puts a price on the table
type OfferMadeEvent struct {
	BaseEvent
	SubmissionID  int64           `json:"submission_id"`
	NegotiationID int64           `json:"negotiation_id"`
	OfferedBy     string          `json:"offered_by"`
	OfferedPrice  decimal.Decimal `json:"offered_price"`
	RoundNumber   int             `json:"round_number"`
}

// SubmissionCompletedEvent is published once an approved submission becomes a listed book
type SubmissionCompletedEvent struct {
	BaseEvent
	SubmissionID    int64           `json:"submission_id"`
	BookID          int64           `json:"book_id"`
	AdminUserID     int64           `json:"admin_user_id"`
	AcquisitionCost decimal.Decimal `json:"acquisition_cost"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
}

// OrderPlacedEvent is published after a checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	BookIDs     []int64         `json:"book_ids"`
}

// BookRestockedEvent is published when staff return a sold book to inventory
type BookRestockedEvent struct {
	BaseEvent
	BookID int64 `json:"book_id"`
}
