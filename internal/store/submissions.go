package store

import (
	"context"
	"strconv"
	"strings"

	"bookmarket-service/internal/models"
)

// CreateSubmission inserts a new sell submission
func (q *queries) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (user_id, isbn, title, author, edition, physical_condition, course_major, asking_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, submitted_at, updated_at`

	return q.get(ctx, sub, query,
		sub.UserID, sub.ISBN, sub.Title, sub.Author, sub.Edition,
		sub.PhysicalCondition, sub.CourseMajor, sub.AskingPrice, sub.Status)
}

// GetSubmission retrieves a submission by ID
func (q *queries) GetSubmission(ctx context.Context, id int64) (*models.Submission, error) {
	var sub models.Submission
	if err := q.get(ctx, &sub, "SELECT * FROM submissions WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubmissionForUpdate retrieves a submission and locks its row until the transaction ends.
// Every negotiation action on the same submission serialises behind this lock.
func (q *queries) GetSubmissionForUpdate(ctx context.Context, id int64) (*models.Submission, error) {
	var sub models.Submission
	if err := q.get(ctx, &sub, "SELECT * FROM submissions WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubmissionStatus sets the status and, when given, the acting staff member
func (q *queries) UpdateSubmissionStatus(ctx context.Context, id int64, status string, adminUserID *int64) error {
	return q.execOne(ctx,
		"UPDATE submissions SET status = $1, admin_user_id = COALESCE($2, admin_user_id), updated_at = NOW() WHERE id = $3",
		status, adminUserID, id)
}

// ListSubmissionsByUser retrieves a customer's submissions, newest first
func (q *queries) ListSubmissionsByUser(ctx context.Context, userID int64) ([]models.Submission, error) {
	subs := []models.Submission{}
	err := q.selectAll(ctx, &subs,
		"SELECT * FROM submissions WHERE user_id = $1 ORDER BY submitted_at DESC, id DESC", userID)
	return subs, err
}

// ListSubmissionsByStatus retrieves the review queue for a status, oldest first
func (q *queries) ListSubmissionsByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	subs := []models.Submission{}
	err := q.selectAll(ctx, &subs,
		"SELECT * FROM submissions WHERE status = $1 ORDER BY submitted_at, id", status)
	return subs, err
}

// CreateNegotiation inserts a negotiation round
func (q *queries) CreateNegotiation(ctx context.Context, n *models.Negotiation) error {
	query := `
		INSERT INTO price_negotiations (submission_id, offered_by, offered_price, offer_message, offer_status, round_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return q.get(ctx, n, query,
		n.SubmissionID, n.OfferedBy, n.OfferedPrice, n.OfferMessage, n.OfferStatus, n.RoundNumber)
}

// GetNegotiation retrieves a negotiation round by ID
func (q *queries) GetNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	var n models.Negotiation
	if err := q.get(ctx, &n, "SELECT * FROM price_negotiations WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNegotiationStatus moves a round out of PENDING
func (q *queries) UpdateNegotiationStatus(ctx context.Context, id int64, status string) error {
	return q.execOne(ctx,
		"UPDATE price_negotiations SET offer_status = $1 WHERE id = $2", status, id)
}

// LatestNegotiation retrieves the highest-round negotiation matching filter
func (q *queries) LatestNegotiation(ctx context.Context, submissionID int64, filter NegotiationFilter) (*models.Negotiation, error) {
	where, args := negotiationWhere(submissionID, filter)
	var n models.Negotiation
	err := q.get(ctx, &n,
		"SELECT * FROM price_negotiations WHERE "+where+" ORDER BY round_number DESC LIMIT 1", args...)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CountNegotiations counts negotiation rounds matching filter
func (q *queries) CountNegotiations(ctx context.Context, submissionID int64, filter NegotiationFilter) (int, error) {
	where, args := negotiationWhere(submissionID, filter)
	var count int
	err := q.get(ctx, &count, "SELECT COUNT(*) FROM price_negotiations WHERE "+where, args...)
	return count, err
}

// RejectPendingOffers supersedes every pending offer made by one side
func (q *queries) RejectPendingOffers(ctx context.Context, submissionID int64, offeredBy string) (int64, error) {
	return q.exec(ctx,
		"UPDATE price_negotiations SET offer_status = $1 WHERE submission_id = $2 AND offered_by = $3 AND offer_status = $4",
		models.OfferStatusRejected, submissionID, offeredBy, models.OfferStatusPending)
}

// ListNegotiations retrieves the full negotiation history in round order
func (q *queries) ListNegotiations(ctx context.Context, submissionID int64) ([]models.Negotiation, error) {
	rounds := []models.Negotiation{}
	err := q.selectAll(ctx, &rounds,
		"SELECT * FROM price_negotiations WHERE submission_id = $1 ORDER BY round_number", submissionID)
	return rounds, err
}

func negotiationWhere(submissionID int64, filter NegotiationFilter) (string, []interface{}) {
	conds := []string{"submission_id = $1"}
	args := []interface{}{submissionID}
	if filter.OfferedBy != "" {
		args = append(args, filter.OfferedBy)
		conds = append(conds, "offered_by = $2")
	}
	if filter.OfferStatus != "" {
		args = append(args, filter.OfferStatus)
		conds = append(conds, "offer_status = $"+strconv.Itoa(len(args)))
	}
	return strings.Join(conds, " AND "), args
}
