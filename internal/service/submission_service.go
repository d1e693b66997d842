package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Customer negotiation actions
const (
	ActionAccept  = "accept"
	ActionReject  = "reject"
	ActionCounter = "counter"
)

var (
	latestAny          = store.NegotiationFilter{}
	pendingAdminOffers = store.NegotiationFilter{OfferedBy: models.OfferedByAdmin, OfferStatus: models.OfferStatusPending}
	acceptedOffers     = store.NegotiationFilter{OfferStatus: models.OfferStatusAccepted}
)

// SubmissionService drives sell submissions from creation through price
// negotiation to approval or rejection. It keeps no state between calls:
// every action re-reads the submission under a row lock before mutating.
type SubmissionService struct {
	store          store.Runner
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(store store.Runner, eventPublisher EventPublisher) *SubmissionService {
	return &SubmissionService{
		store:          store,
		eventPublisher: publisherOrNop(eventPublisher),
		logger:         util.GetLogger(),
	}
}

// CreateSubmissionRequest represents a customer's offer to sell a book
type CreateSubmissionRequest struct {
	BookFields
	UserID      int64           `json:"-"`
	AskingPrice decimal.Decimal `json:"asking_price"`
}

// CustomerNegotiateRequest is a customer's response to the negotiation
type CustomerNegotiateRequest struct {
	SubmissionID  int64           `json:"-"`
	UserID        int64           `json:"-"`
	Action        string          `json:"action" binding:"required"`
	NegotiationID int64           `json:"negotiation_id,omitempty"`
	OfferedPrice  decimal.Decimal `json:"offered_price,omitempty"`
	Message       *string         `json:"message,omitempty"`
}

// AdminNegotiateRequest is a staff price offer
type AdminNegotiateRequest struct {
	SubmissionID int64           `json:"-"`
	AdminUserID  int64           `json:"-"`
	OfferedPrice decimal.Decimal `json:"offered_price"`
	Message      *string         `json:"message,omitempty"`
}

// ApproveSubmissionRequest turns a submission into a listed book
type ApproveSubmissionRequest struct {
	SubmissionID int64           `json:"-"`
	AdminUserID  int64           `json:"-"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// NegotiationResult describes the negotiation round an action produced or touched
type NegotiationResult struct {
	NegotiationID    int64           `json:"negotiation_id"`
	SubmissionID     int64           `json:"submission_id"`
	SubmissionStatus string          `json:"submission_status"`
	OfferedBy        string          `json:"offered_by"`
	OfferStatus      string          `json:"offer_status"`
	OfferedPrice     decimal.Decimal `json:"offered_price"`
	OfferMessage     *string         `json:"offer_message,omitempty"`
	RoundNumber      int             `json:"round_number"`
}

// ApprovalResult is returned once a submission has produced a book
type ApprovalResult struct {
	SubmissionID    int64           `json:"submission_id"`
	BookID          int64           `json:"book_id"`
	Status          string          `json:"status"`
	AcquisitionCost decimal.Decimal `json:"acquisition_cost"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
}

// SubmissionDetails is a submission with its ordered negotiation history
type SubmissionDetails struct {
	Submission   *models.Submission   `json:"submission"`
	Negotiations []models.Negotiation `json:"negotiations"`
}

func newNegotiationResult(n *models.Negotiation, submissionStatus string) *NegotiationResult {
	return &NegotiationResult{
		NegotiationID:    n.ID,
		SubmissionID:     n.SubmissionID,
		SubmissionStatus: submissionStatus,
		OfferedBy:        n.OfferedBy,
		OfferStatus:      n.OfferStatus,
		OfferedPrice:     n.OfferedPrice,
		OfferMessage:     n.OfferMessage,
		RoundNumber:      n.RoundNumber,
	}
}

// CreateSubmission records a new submission awaiting staff review
func (s *SubmissionService) CreateSubmission(ctx context.Context, req *CreateSubmissionRequest) (sub *models.Submission, err error) {
	ctx, span := util.StartSpan(ctx, "SubmissionService.CreateSubmission", attribute.Int64("user_id", req.UserID))
	defer func() { util.EndSpan(span, err) }()

	if err := req.BookFields.normalize(); err != nil {
		return nil, err
	}
	if err := validatePrice("asking price", req.AskingPrice); err != nil {
		return nil, err
	}

	sub = &models.Submission{
		UserID:            req.UserID,
		ISBN:              req.ISBN,
		Title:             req.Title,
		Author:            req.Author,
		Edition:           req.Edition,
		PhysicalCondition: req.PhysicalCondition,
		CourseMajor:       req.CourseMajor,
		AskingPrice:       req.AskingPrice,
		Status:            models.SubmissionStatusPendingReview,
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		return q.CreateSubmission(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	util.SubmissionsCreatedTotal.Inc()
	s.logger.Info("Submission created",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("user_id", sub.UserID),
		zap.String("asking_price", sub.AskingPrice.StringFixed(2)))

	s.publishStatus(ctx, models.EventTypeSubmissionCreated, sub, "")
	return sub, nil
}

// CustomerNegotiate applies a customer's accept, reject or counter action
func (s *SubmissionService) CustomerNegotiate(ctx context.Context, req *CustomerNegotiateRequest) (result *NegotiationResult, err error) {
	ctx, span := util.StartSpan(ctx, "SubmissionService.CustomerNegotiate",
		attribute.Int64("submission_id", req.SubmissionID), attribute.String("action", req.Action))
	defer func() {
		s.countFailure("customer_negotiate", err)
		util.EndSpan(span, err)
	}()

	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case ActionAccept, ActionReject:
		if req.NegotiationID <= 0 {
			return nil, invalidInput("negotiation_id is required to %s an offer", action)
		}
	case ActionCounter:
		if err := validatePrice("offered price", req.OfferedPrice); err != nil {
			return nil, err
		}
	default:
		return nil, invalidInput("action must be one of accept, reject, counter")
	}

	var sub *models.Submission
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		sub, err = q.GetSubmissionForUpdate(ctx, req.SubmissionID)
		if err != nil {
			return lookupErr(err, "submission", req.SubmissionID)
		}
		if sub.UserID != req.UserID {
			return forbidden("submission %d belongs to another user", sub.ID)
		}
		if err := requireNegotiable(sub); err != nil {
			return err
		}

		switch action {
		case ActionAccept:
			result, err = s.acceptOffer(ctx, q, sub, req.NegotiationID)
		case ActionReject:
			result, err = s.rejectOffer(ctx, q, sub, req.NegotiationID)
		default:
			result, err = s.counterOffer(ctx, q, sub, req.OfferedPrice, optionalText(req.Message))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer negotiation applied",
		zap.Int64("submission_id", result.SubmissionID),
		zap.String("action", action),
		zap.Int64("negotiation_id", result.NegotiationID),
		zap.Int("round", result.RoundNumber),
		zap.String("submission_status", result.SubmissionStatus))

	switch {
	case action == ActionCounter:
		util.NegotiationOffersTotal.WithLabelValues(models.OfferedByUser).Inc()
		s.publishOffer(ctx, result)
	case result.SubmissionStatus == models.SubmissionStatusApproved:
		s.publishStatus(ctx, models.EventTypeSubmissionApproved, sub, "")
	case result.SubmissionStatus == models.SubmissionStatusRejected:
		util.SubmissionsRejectedTotal.WithLabelValues("customer").Inc()
		s.publishStatus(ctx, models.EventTypeSubmissionRejected, sub, "customer rejected the final offer")
	}
	return result, nil
}

// acceptOffer closes the negotiation on the latest pending staff offer
func (s *SubmissionService) acceptOffer(ctx context.Context, q store.Queries, sub *models.Submission, negotiationID int64) (*NegotiationResult, error) {
	n, err := s.loadRound(ctx, q, sub.ID, negotiationID)
	if err != nil {
		return nil, err
	}
	if n.OfferedBy != models.OfferedByAdmin {
		return nil, invalidOperation("only staff offers can be accepted")
	}
	if n.OfferStatus != models.OfferStatusPending {
		return nil, conflict("offer %d is no longer pending, please refresh", n.ID)
	}

	latest, err := q.LatestNegotiation(ctx, sub.ID, pendingAdminOffers)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest staff offer: %w", err)
	}
	if latest.ID != n.ID {
		return nil, conflict("offer %d has been superseded by a newer offer, please refresh", n.ID)
	}

	if err := q.UpdateNegotiationStatus(ctx, n.ID, models.OfferStatusAccepted); err != nil {
		return nil, fmt.Errorf("failed to accept offer: %w", err)
	}
	if err := closeCustomerCounters(ctx, q, sub.ID); err != nil {
		return nil, err
	}
	if err := q.UpdateSubmissionStatus(ctx, sub.ID, models.SubmissionStatusApproved, nil); err != nil {
		return nil, fmt.Errorf("failed to approve submission: %w", err)
	}

	n.OfferStatus = models.OfferStatusAccepted
	sub.Status = models.SubmissionStatusApproved
	return newNegotiationResult(n, sub.Status), nil
}

// rejectOffer declines a staff offer; the submission is rejected once no staff offer is left.
// Rejecting an offer that was already superseded only re-evaluates the submission.
func (s *SubmissionService) rejectOffer(ctx context.Context, q store.Queries, sub *models.Submission, negotiationID int64) (*NegotiationResult, error) {
	n, err := s.loadRound(ctx, q, sub.ID, negotiationID)
	if err != nil {
		return nil, err
	}
	if n.OfferedBy != models.OfferedByAdmin {
		return nil, invalidOperation("only staff offers can be rejected")
	}

	if n.OfferStatus != models.OfferStatusRejected {
		if err := q.UpdateNegotiationStatus(ctx, n.ID, models.OfferStatusRejected); err != nil {
			return nil, fmt.Errorf("failed to reject offer: %w", err)
		}
		n.OfferStatus = models.OfferStatusRejected
	}

	remaining, err := q.CountNegotiations(ctx, sub.ID, pendingAdminOffers)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending offers: %w", err)
	}
	if remaining == 0 {
		if err := closeCustomerCounters(ctx, q, sub.ID); err != nil {
			return nil, err
		}
		if err := q.UpdateSubmissionStatus(ctx, sub.ID, models.SubmissionStatusRejected, nil); err != nil {
			return nil, fmt.Errorf("failed to reject submission: %w", err)
		}
		sub.Status = models.SubmissionStatusRejected
	}
	return newNegotiationResult(n, sub.Status), nil
}

// counterOffer answers the latest pending staff offer with a customer price
func (s *SubmissionService) counterOffer(ctx context.Context, q store.Queries, sub *models.Submission, price decimal.Decimal, message *string) (*NegotiationResult, error) {
	latest, err := q.LatestNegotiation(ctx, sub.ID, latestAny)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalidOperation("no staff offer to counter yet; wait for the store to make an offer")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest negotiation: %w", err)
	}
	if latest.OfferedBy != models.OfferedByAdmin || latest.OfferStatus != models.OfferStatusPending {
		return nil, invalidOperation("you can only counter while a staff offer is awaiting your response")
	}

	n := &models.Negotiation{
		SubmissionID: sub.ID,
		OfferedBy:    models.OfferedByUser,
		OfferedPrice: price,
		OfferMessage: message,
		OfferStatus:  models.OfferStatusPending,
		RoundNumber:  latest.RoundNumber + 1,
	}
	if err := q.CreateNegotiation(ctx, n); err != nil {
		return nil, roundInsertErr(err)
	}
	return newNegotiationResult(n, sub.Status), nil
}

// AdminNegotiate records a staff offer, superseding any older pending staff offers
func (s *SubmissionService) AdminNegotiate(ctx context.Context, req *AdminNegotiateRequest) (result *NegotiationResult, err error) {
	ctx, span := util.StartSpan(ctx, "SubmissionService.AdminNegotiate", attribute.Int64("submission_id", req.SubmissionID))
	defer func() {
		s.countFailure("admin_negotiate", err)
		util.EndSpan(span, err)
	}()

	if err := validatePrice("offered price", req.OfferedPrice); err != nil {
		return nil, err
	}

	var superseded int64
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		sub, err := s.lockNegotiable(ctx, q, req.SubmissionID)
		if err != nil {
			return err
		}

		round := 1
		latest, err := q.LatestNegotiation(ctx, sub.ID, latestAny)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return fmt.Errorf("failed to load latest negotiation: %w", err)
		case latest.OfferedBy == models.OfferedByAdmin && latest.OfferStatus == models.OfferStatusPending:
			return conflict("a staff offer is already awaiting the customer's response")
		case latest.OfferStatus != models.OfferStatusPending:
			return invalidOperation("negotiation for submission %d is closed", sub.ID)
		default:
			round = latest.RoundNumber + 1
		}

		superseded, err = q.RejectPendingOffers(ctx, sub.ID, models.OfferedByAdmin)
		if err != nil {
			return fmt.Errorf("failed to supersede pending offers: %w", err)
		}

		n := &models.Negotiation{
			SubmissionID: sub.ID,
			OfferedBy:    models.OfferedByAdmin,
			OfferedPrice: req.OfferedPrice,
			OfferMessage: optionalText(req.Message),
			OfferStatus:  models.OfferStatusPending,
			RoundNumber:  round,
		}
		if err := q.CreateNegotiation(ctx, n); err != nil {
			return roundInsertErr(err)
		}

		admin := req.AdminUserID
		if err := q.UpdateSubmissionStatus(ctx, sub.ID, sub.Status, &admin); err != nil {
			return fmt.Errorf("failed to assign staff member: %w", err)
		}

		result = newNegotiationResult(n, sub.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.NegotiationOffersTotal.WithLabelValues(models.OfferedByAdmin).Inc()
	s.logger.Info("Staff offer made",
		zap.Int64("submission_id", result.SubmissionID),
		zap.Int64("negotiation_id", result.NegotiationID),
		zap.Int("round", result.RoundNumber),
		zap.Int64("superseded", superseded),
		zap.Int64("admin_user_id", req.AdminUserID))

	s.publishOffer(ctx, result)
	return result, nil
}

// ApproveSubmission lists the submitted book in inventory and completes the submission.
// The acquisition cost is the accepted offer when negotiation took place, or the
// asking price when staff approve directly without negotiating.
func (s *SubmissionService) ApproveSubmission(ctx context.Context, req *ApproveSubmissionRequest) (result *ApprovalResult, err error) {
	ctx, span := util.StartSpan(ctx, "SubmissionService.ApproveSubmission", attribute.Int64("submission_id", req.SubmissionID))
	defer func() {
		s.countFailure("approve", err)
		util.EndSpan(span, err)
	}()

	if err := validatePrice("selling price", req.SellingPrice); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		sub, err := q.GetSubmissionForUpdate(ctx, req.SubmissionID)
		if err != nil {
			return lookupErr(err, "submission", req.SubmissionID)
		}

		listed, err := q.BookExistsForSubmission(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing book: %w", err)
		}
		if listed {
			return conflict("submission %d has already been approved into inventory", sub.ID)
		}
		if sub.Status == models.SubmissionStatusRejected || sub.Status == models.SubmissionStatusCompleted {
			return conflict("submission %d is %s and can no longer be approved", sub.ID, sub.Status)
		}

		cost, err := acquisitionCost(ctx, q, sub)
		if err != nil {
			return err
		}
		if !req.SellingPrice.GreaterThan(cost) {
			return invalidInput("selling price %s must be greater than acquisition cost %s",
				req.SellingPrice.StringFixed(2), cost.StringFixed(2))
		}

		admin := req.AdminUserID
		if err := q.UpdateSubmissionStatus(ctx, sub.ID, models.SubmissionStatusCompleted, &admin); err != nil {
			return fmt.Errorf("failed to complete submission: %w", err)
		}

		subID := sub.ID
		book := &models.Book{
			SubmissionID:      &subID,
			ISBN:              sub.ISBN,
			Title:             sub.Title,
			Author:            sub.Author,
			Edition:           sub.Edition,
			PhysicalCondition: sub.PhysicalCondition,
			CourseMajor:       sub.CourseMajor,
			SellingPrice:      req.SellingPrice,
			AcquisitionCost:   cost,
			Status:            models.BookStatusAvailable,
		}
		if err := q.CreateBook(ctx, book); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return conflict("submission %d has already been approved into inventory", sub.ID)
			}
			return fmt.Errorf("failed to create book: %w", err)
		}

		result = &ApprovalResult{
			SubmissionID:    sub.ID,
			BookID:          book.ID,
			Status:          models.SubmissionStatusCompleted,
			AcquisitionCost: cost,
			SellingPrice:    book.SellingPrice,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.SubmissionsApprovedTotal.Inc()
	s.logger.Info("Submission approved",
		zap.Int64("submission_id", result.SubmissionID),
		zap.Int64("book_id", result.BookID),
		zap.String("acquisition_cost", result.AcquisitionCost.StringFixed(2)),
		zap.String("selling_price", result.SellingPrice.StringFixed(2)))

	event := &models.SubmissionCompletedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeSubmissionCompleted),
		SubmissionID:    result.SubmissionID,
		BookID:          result.BookID,
		AdminUserID:     req.AdminUserID,
		AcquisitionCost: result.AcquisitionCost,
		SellingPrice:    result.SellingPrice,
	}
	if err := s.eventPublisher.PublishSubmissionCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SubmissionCompleted event", zap.Error(err))
	}
	return result, nil
}

// acquisitionCost picks the price the store pays for a submission being approved
func acquisitionCost(ctx context.Context, q store.Queries, sub *models.Submission) (decimal.Decimal, error) {
	accepted, err := q.LatestNegotiation(ctx, sub.ID, acceptedOffers)
	switch {
	case err == nil:
		if sub.Status != models.SubmissionStatusApproved {
			return decimal.Zero, invalidOperation(
				"submission must be in %s status with an accepted negotiation before approval", models.SubmissionStatusApproved)
		}
		return accepted.OfferedPrice, nil
	case !errors.Is(err, store.ErrNotFound):
		return decimal.Zero, fmt.Errorf("failed to load accepted offer: %w", err)
	}

	rounds, err := q.CountNegotiations(ctx, sub.ID, latestAny)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to count negotiations: %w", err)
	}
	if rounds > 0 || sub.Status != models.SubmissionStatusPendingReview {
		return decimal.Zero, invalidOperation(
			"submission must be in %s status with an accepted negotiation, or %s with no negotiation, before approval",
			models.SubmissionStatusApproved, models.SubmissionStatusPendingReview)
	}
	return sub.AskingPrice, nil
}

// RejectSubmission declines a submission outright
func (s *SubmissionService) RejectSubmission(ctx context.Context, submissionID, adminUserID int64, reason string) (err error) {
	ctx, span := util.StartSpan(ctx, "SubmissionService.RejectSubmission", attribute.Int64("submission_id", submissionID))
	defer func() {
		s.countFailure("reject", err)
		util.EndSpan(span, err)
	}()

	var sub *models.Submission
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		sub, err = q.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return lookupErr(err, "submission", submissionID)
		}

		switch sub.Status {
		case models.SubmissionStatusRejected, models.SubmissionStatusApproved, models.SubmissionStatusCompleted:
			return conflict("submission %d is already %s", sub.ID, sub.Status)
		}

		if _, err := q.RejectPendingOffers(ctx, sub.ID, models.OfferedByAdmin); err != nil {
			return fmt.Errorf("failed to close staff offers: %w", err)
		}
		if err := closeCustomerCounters(ctx, q, sub.ID); err != nil {
			return err
		}

		admin := adminUserID
		if err := q.UpdateSubmissionStatus(ctx, sub.ID, models.SubmissionStatusRejected, &admin); err != nil {
			return fmt.Errorf("failed to reject submission: %w", err)
		}
		sub.Status = models.SubmissionStatusRejected
		sub.AdminUserID = &admin
		return nil
	})
	if err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	util.SubmissionsRejectedTotal.WithLabelValues("staff").Inc()
	s.logger.Info("Submission rejected",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("admin_user_id", adminUserID),
		zap.String("reason", reason))

	s.publishStatus(ctx, models.EventTypeSubmissionRejected, sub, reason)
	return nil
}

// GetSubmissionDetails returns a submission and its negotiation history.
// Only the owner or a staff member may view it.
func (s *SubmissionService) GetSubmissionDetails(ctx context.Context, submissionID int64, caller *models.Identity) (*SubmissionDetails, error) {
	details := &SubmissionDetails{}
	err := s.store.View(ctx, func(q store.Queries) error {
		sub, err := q.GetSubmission(ctx, submissionID)
		if err != nil {
			return lookupErr(err, "submission", submissionID)
		}
		if caller == nil || (sub.UserID != caller.UserID && !caller.IsStaff()) {
			return forbidden("submission %d belongs to another user", sub.ID)
		}

		rounds, err := q.ListNegotiations(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to load negotiations: %w", err)
		}
		details.Submission = sub
		details.Negotiations = rounds
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// ListMySubmissions returns a customer's submissions, newest first
func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID int64) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		subs, err = q.ListSubmissionsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// ListSubmissionsByStatus returns the staff review queue for one status
func (s *SubmissionService) ListSubmissionsByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		status = models.SubmissionStatusPendingReview
	}
	switch status {
	case models.SubmissionStatusPendingReview, models.SubmissionStatusApproved,
		models.SubmissionStatusRejected, models.SubmissionStatusCompleted:
	default:
		return nil, invalidInput("unknown submission status %q", status)
	}

	var subs []models.Submission
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		subs, err = q.ListSubmissionsByStatus(ctx, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// lockNegotiable locks a submission that must still be open for negotiation
func (s *SubmissionService) lockNegotiable(ctx context.Context, q store.Queries, submissionID int64) (*models.Submission, error) {
	sub, err := q.GetSubmissionForUpdate(ctx, submissionID)
	if err != nil {
		return nil, lookupErr(err, "submission", submissionID)
	}
	if err := requireNegotiable(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func requireNegotiable(sub *models.Submission) error {
	if sub.Status != models.SubmissionStatusPendingReview {
		return conflict("submission %d is %s; negotiation is only possible while %s",
			sub.ID, sub.Status, models.SubmissionStatusPendingReview)
	}
	return nil
}

// closeCustomerCounters rejects customer counters left unanswered when a negotiation ends
func closeCustomerCounters(ctx context.Context, q store.Queries, submissionID int64) error {
	if _, err := q.RejectPendingOffers(ctx, submissionID, models.OfferedByUser); err != nil {
		return fmt.Errorf("failed to close customer counters: %w", err)
	}
	return nil
}

// loadRound loads a negotiation round that must belong to the submission
func (s *SubmissionService) loadRound(ctx context.Context, q store.Queries, submissionID, negotiationID int64) (*models.Negotiation, error) {
	n, err := q.GetNegotiation(ctx, negotiationID)
	if err != nil {
		return nil, lookupErr(err, "negotiation", negotiationID)
	}
	if n.SubmissionID != submissionID {
		return nil, notFound("negotiation %d not found", negotiationID)
	}
	return n, nil
}

// roundInsertErr maps a uniqueness violation on a new round to a lost race
func roundInsertErr(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return conflict("negotiation changed concurrently, please refresh")
	}
	return fmt.Errorf("failed to record offer: %w", err)
}

func (s *SubmissionService) countFailure(operation string, err error) {
	if kind, ok := KindOf(err); ok {
		util.NegotiationActionsFailed.WithLabelValues(operation, string(kind)).Inc()
	}
}

func (s *SubmissionService) publishStatus(ctx context.Context, eventType string, sub *models.Submission, reason string) {
	event := &models.SubmissionEvent{
		BaseEvent:    newBaseEvent(eventType),
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		AdminUserID:  sub.AdminUserID,
		Status:       sub.Status,
		Reason:       reason,
	}
	if err := s.eventPublisher.PublishSubmissionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish submission event",
			zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *SubmissionService) publishOffer(ctx context.Context, result *NegotiationResult) {
	event := &models.OfferMadeEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOfferMade),
		SubmissionID:  result.SubmissionID,
		NegotiationID: result.NegotiationID,
		OfferedBy:     result.OfferedBy,
		OfferedPrice:  result.OfferedPrice,
		RoundNumber:   result.RoundNumber,
	}
	if err := s.eventPublisher.PublishOfferMade(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferMade event", zap.Error(err))
	}
}
