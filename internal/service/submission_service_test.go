package service

import (
	"context"
	"testing"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sellerID = int64(10)
	otherID  = int64(11)
	adminID  = int64(1)
)

func newSubmissionFixture(t *testing.T) (*SubmissionService, *memstore.Store, *recordingPublisher) {
	t.Helper()
	mem := memstore.New()
	pub := &recordingPublisher{}
	return NewSubmissionService(mem, pub), mem, pub
}

func submitBook(t *testing.T, svc *SubmissionService, asking string) *models.Submission {
	t.Helper()
	major := "Computer Science"
	sub, err := svc.CreateSubmission(context.Background(), &CreateSubmissionRequest{
		BookFields: BookFields{
			ISBN:              "978-0-262-03384-8",
			Title:             "Introduction to Algorithms",
			Author:            "Cormen",
			Edition:           "3rd",
			PhysicalCondition: "good",
			CourseMajor:       &major,
		},
		UserID:      sellerID,
		AskingPrice: price(asking),
	})
	require.NoError(t, err)
	return sub
}

func adminOffer(t *testing.T, svc *SubmissionService, subID int64, offered string) *NegotiationResult {
	t.Helper()
	res, err := svc.AdminNegotiate(context.Background(), &AdminNegotiateRequest{
		SubmissionID: subID,
		AdminUserID:  adminID,
		OfferedPrice: price(offered),
	})
	require.NoError(t, err)
	return res
}

func counter(t *testing.T, svc *SubmissionService, subID int64, offered string) *NegotiationResult {
	t.Helper()
	res, err := svc.CustomerNegotiate(context.Background(), &CustomerNegotiateRequest{
		SubmissionID: subID,
		UserID:       sellerID,
		Action:       ActionCounter,
		OfferedPrice: price(offered),
	})
	require.NoError(t, err)
	return res
}

func respond(svc *SubmissionService, subID, negotiationID int64, action string) (*NegotiationResult, error) {
	return svc.CustomerNegotiate(context.Background(), &CustomerNegotiateRequest{
		SubmissionID:  subID,
		UserID:        sellerID,
		Action:        action,
		NegotiationID: negotiationID,
	})
}

func loadSubmission(t *testing.T, mem *memstore.Store, id int64) (*models.Submission, []models.Negotiation) {
	t.Helper()
	var (
		sub    *models.Submission
		rounds []models.Negotiation
	)
	require.NoError(t, mem.View(context.Background(), func(q store.Queries) error {
		var err error
		if sub, err = q.GetSubmission(context.Background(), id); err != nil {
			return err
		}
		rounds, err = q.ListNegotiations(context.Background(), id)
		return err
	}))
	return sub, rounds
}

func TestCreateSubmission(t *testing.T) {
	svc, _, pub := newSubmissionFixture(t)

	sub := submitBook(t, svc, "30.00")

	assert.NotZero(t, sub.ID)
	assert.Equal(t, models.SubmissionStatusPendingReview, sub.Status)
	assert.Equal(t, models.ConditionGood, sub.PhysicalCondition)
	assert.Nil(t, sub.AdminUserID)
	assert.Equal(t, []string{models.EventTypeSubmissionCreated}, pub.types())
}

func TestCreateSubmissionValidation(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)

	valid := func() *CreateSubmissionRequest {
		return &CreateSubmissionRequest{
			BookFields: BookFields{
				ISBN: "1", Title: "T", Author: "A", Edition: "1", PhysicalCondition: "New",
			},
			UserID:      sellerID,
			AskingPrice: price("10"),
		}
	}

	tests := []struct {
		name   string
		mutate func(r *CreateSubmissionRequest)
	}{
		{"zero price", func(r *CreateSubmissionRequest) { r.AskingPrice = price("0") }},
		{"negative price", func(r *CreateSubmissionRequest) { r.AskingPrice = price("-5") }},
		{"sub-cent price", func(r *CreateSubmissionRequest) { r.AskingPrice = price("10.005") }},
		{"blank title", func(r *CreateSubmissionRequest) { r.Title = "   " }},
		{"unknown condition", func(r *CreateSubmissionRequest) { r.PhysicalCondition = "Mint" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := svc.CreateSubmission(context.Background(), req)
			requireKind(t, err, KindInvalidInput)
		})
	}
}

// Asking $30, offers $25 / $28 / $27, customer accepts $27, staff list it at $40.
func TestNegotiationScenario(t *testing.T) {
	svc, mem, pub := newSubmissionFixture(t)
	ctx := context.Background()

	sub := submitBook(t, svc, "30.00")

	r1 := adminOffer(t, svc, sub.ID, "25.00")
	assert.Equal(t, 1, r1.RoundNumber)

	r2 := counter(t, svc, sub.ID, "28.00")
	assert.Equal(t, 2, r2.RoundNumber)
	assert.Equal(t, models.OfferedByUser, r2.OfferedBy)

	r3 := adminOffer(t, svc, sub.ID, "27.00")
	assert.Equal(t, 3, r3.RoundNumber)

	_, rounds := loadSubmission(t, mem, sub.ID)
	require.Len(t, rounds, 3)
	assert.Equal(t, models.OfferStatusRejected, rounds[0].OfferStatus, "round 1 is superseded by round 3")
	assert.Equal(t, models.OfferStatusPending, rounds[1].OfferStatus)
	assert.Equal(t, models.OfferStatusPending, rounds[2].OfferStatus)

	accepted, err := respond(svc, sub.ID, r3.NegotiationID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusAccepted, accepted.OfferStatus)
	assert.Equal(t, models.SubmissionStatusApproved, accepted.SubmissionStatus)

	_, rounds = loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.OfferStatusRejected, rounds[1].OfferStatus, "open counter closes on accept")

	approval, err := svc.ApproveSubmission(ctx, &ApproveSubmissionRequest{
		SubmissionID: sub.ID,
		AdminUserID:  adminID,
		SellingPrice: price("40.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "27.00", approval.AcquisitionCost.StringFixed(2))
	assert.Equal(t, "40.00", approval.SellingPrice.StringFixed(2))
	assert.Equal(t, models.SubmissionStatusCompleted, approval.Status)

	book := getBook(t, mem, approval.BookID)
	assert.Equal(t, models.BookStatusAvailable, book.Status)
	assert.Equal(t, "27.00", book.AcquisitionCost.StringFixed(2))
	require.NotNil(t, book.SubmissionID)
	assert.Equal(t, sub.ID, *book.SubmissionID)

	final, _ := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusCompleted, final.Status)
	require.NotNil(t, final.AdminUserID)
	assert.Equal(t, adminID, *final.AdminUserID)

	assert.Equal(t, []string{
		models.EventTypeSubmissionCreated,
		models.EventTypeOfferMade,
		models.EventTypeOfferMade,
		models.EventTypeOfferMade,
		models.EventTypeSubmissionApproved,
		models.EventTypeSubmissionCompleted,
	}, pub.types())
}

func TestRoundNumbersIncreaseByOne(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	sub := submitBook(t, svc, "50.00")

	adminOffer(t, svc, sub.ID, "20.00")
	counter(t, svc, sub.ID, "45.00")
	adminOffer(t, svc, sub.ID, "25.00")
	counter(t, svc, sub.ID, "40.00")
	adminOffer(t, svc, sub.ID, "30.00")

	_, rounds := loadSubmission(t, mem, sub.ID)
	require.Len(t, rounds, 5)
	for i, r := range rounds {
		assert.Equal(t, i+1, r.RoundNumber)
	}

	pending := 0
	for _, r := range rounds {
		if r.OfferedBy == models.OfferedByAdmin && r.OfferStatus == models.OfferStatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending, "at most one pending staff offer")
}

func TestLatestOfferOnlyAccept(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")

	// round 1 superseded by round 2, both staff offers
	var r1, r2 models.Negotiation
	require.NoError(t, mem.WithTx(ctx, func(q store.Queries) error {
		r1 = models.Negotiation{SubmissionID: sub.ID, OfferedBy: models.OfferedByAdmin,
			OfferedPrice: price("20"), OfferStatus: models.OfferStatusPending, RoundNumber: 1}
		if err := q.CreateNegotiation(ctx, &r1); err != nil {
			return err
		}
		if _, err := q.RejectPendingOffers(ctx, sub.ID, models.OfferedByAdmin); err != nil {
			return err
		}
		r2 = models.Negotiation{SubmissionID: sub.ID, OfferedBy: models.OfferedByAdmin,
			OfferedPrice: price("22"), OfferStatus: models.OfferStatusPending, RoundNumber: 2}
		return q.CreateNegotiation(ctx, &r2)
	}))

	_, err := respond(svc, sub.ID, r1.ID, ActionAccept)
	requireKind(t, err, KindConflict)

	res, err := respond(svc, sub.ID, r2.ID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, res.SubmissionStatus)
}

func TestAcceptStaleOfferAfterNewerOffer(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")

	r1 := adminOffer(t, svc, sub.ID, "25.00")
	counter(t, svc, sub.ID, "28.00")
	adminOffer(t, svc, sub.ID, "27.00")

	_, err := respond(svc, sub.ID, r1.NegotiationID, ActionAccept)
	requireKind(t, err, KindConflict)

	current, _ := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusPendingReview, current.Status)
}

func TestAcceptRequiresStaffOffer(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")

	adminOffer(t, svc, sub.ID, "25.00")
	own := counter(t, svc, sub.ID, "28.00")

	_, err := respond(svc, sub.ID, own.NegotiationID, ActionAccept)
	requireKind(t, err, KindInvalidOperation)

	_, err = respond(svc, sub.ID, 0, ActionAccept)
	requireKind(t, err, KindInvalidInput)

	_, err = respond(svc, sub.ID, 999, ActionAccept)
	requireKind(t, err, KindNotFound)
}

func TestNegotiationIDFromOtherSubmission(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	first := submitBook(t, svc, "30.00")
	second := submitBook(t, svc, "30.00")

	offer := adminOffer(t, svc, first.ID, "25.00")

	_, err := respond(svc, second.ID, offer.NegotiationID, ActionAccept)
	requireKind(t, err, KindNotFound)
}

func TestTurnAlternation(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")

	_, err := svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: sellerID, Action: ActionCounter, OfferedPrice: price("29"),
	})
	requireKind(t, err, KindInvalidOperation)

	adminOffer(t, svc, sub.ID, "20.00")

	_, err = svc.AdminNegotiate(ctx, &AdminNegotiateRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, OfferedPrice: price("21"),
	})
	requireKind(t, err, KindConflict)

	counter(t, svc, sub.ID, "28.00")

	_, err = svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: sellerID, Action: ActionCounter, OfferedPrice: price("27"),
	})
	requireKind(t, err, KindInvalidOperation)
}

func TestAdminOfferAfterClosedRound(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")

	// latest round already answered while the submission is still under review
	require.NoError(t, mem.WithTx(ctx, func(q store.Queries) error {
		return q.CreateNegotiation(ctx, &models.Negotiation{SubmissionID: sub.ID, OfferedBy: models.OfferedByAdmin,
			OfferedPrice: price("20"), OfferStatus: models.OfferStatusRejected, RoundNumber: 1})
	}))

	_, err := svc.AdminNegotiate(ctx, &AdminNegotiateRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, OfferedPrice: price("22"),
	})
	requireKind(t, err, KindInvalidOperation)

	current, rounds := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusPendingReview, current.Status)
	require.Len(t, rounds, 1)
	assert.Equal(t, models.OfferStatusRejected, rounds[0].OfferStatus)
}

func TestOwnershipCheckedBeforeStatus(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")
	require.NoError(t, svc.RejectSubmission(ctx, sub.ID, adminID, ""))

	_, err := svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: otherID, Action: ActionCounter, OfferedPrice: price("25"),
	})
	requireKind(t, err, KindForbidden)

	_, err = svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: sellerID, Action: ActionCounter, OfferedPrice: price("25"),
	})
	requireKind(t, err, KindConflict)
}

func TestRejectSupersededOfferKeepsLiveOffer(t *testing.T) {
	svc, mem, pub := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")

	r1 := adminOffer(t, svc, sub.ID, "25.00")
	counter(t, svc, sub.ID, "28.00")
	r3 := adminOffer(t, svc, sub.ID, "27.00")

	res, err := respond(svc, sub.ID, r1.NegotiationID, ActionReject)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, res.OfferStatus)
	assert.Equal(t, models.SubmissionStatusPendingReview, res.SubmissionStatus)
	assert.NotContains(t, pub.types(), models.EventTypeSubmissionRejected)

	current, rounds := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusPendingReview, current.Status)
	require.Len(t, rounds, 3)
	assert.Equal(t, models.OfferStatusPending, rounds[2].OfferStatus)

	_, err = respond(svc, sub.ID, r3.NegotiationID, ActionAccept)
	require.NoError(t, err)
}

func TestClosingNegotiationRejectsCustomerCounters(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		svc, mem, _ := newSubmissionFixture(t)
		sub := submitBook(t, svc, "30.00")
		r1 := adminOffer(t, svc, sub.ID, "25.00")
		counter(t, svc, sub.ID, "28.00")

		res, err := respond(svc, sub.ID, r1.NegotiationID, ActionAccept)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusApproved, res.SubmissionStatus)

		_, rounds := loadSubmission(t, mem, sub.ID)
		require.Len(t, rounds, 2)
		assert.Equal(t, models.OfferStatusAccepted, rounds[0].OfferStatus)
		assert.Equal(t, models.OfferStatusRejected, rounds[1].OfferStatus)
	})

	t.Run("staff reject", func(t *testing.T) {
		svc, mem, _ := newSubmissionFixture(t)
		sub := submitBook(t, svc, "30.00")
		adminOffer(t, svc, sub.ID, "25.00")
		counter(t, svc, sub.ID, "28.00")
		adminOffer(t, svc, sub.ID, "26.00")

		require.NoError(t, svc.RejectSubmission(context.Background(), sub.ID, adminID, "changed our mind"))

		_, rounds := loadSubmission(t, mem, sub.ID)
		for _, r := range rounds {
			assert.Equal(t, models.OfferStatusRejected, r.OfferStatus, "round %d", r.RoundNumber)
		}
	})
}

func TestCustomerNegotiateValidation(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")
	adminOffer(t, svc, sub.ID, "20.00")

	_, err := svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: sellerID, Action: "haggle",
	})
	requireKind(t, err, KindInvalidInput)

	_, err = svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: sellerID, Action: ActionCounter, OfferedPrice: price("0"),
	})
	requireKind(t, err, KindInvalidInput)

	_, err = svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: sub.ID, UserID: otherID, Action: ActionCounter, OfferedPrice: price("25"),
	})
	requireKind(t, err, KindForbidden)

	_, err = svc.CustomerNegotiate(ctx, &CustomerNegotiateRequest{
		SubmissionID: 404, UserID: sellerID, Action: ActionCounter, OfferedPrice: price("25"),
	})
	requireKind(t, err, KindNotFound)
}

func TestCustomerRejectClosesSubmission(t *testing.T) {
	svc, mem, pub := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")
	offer := adminOffer(t, svc, sub.ID, "10.00")

	res, err := respond(svc, sub.ID, offer.NegotiationID, ActionReject)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, res.OfferStatus)
	assert.Equal(t, models.SubmissionStatusRejected, res.SubmissionStatus)

	current, _ := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusRejected, current.Status)
	assert.Contains(t, pub.types(), models.EventTypeSubmissionRejected)

	_, err = respond(svc, sub.ID, offer.NegotiationID, ActionReject)
	requireKind(t, err, KindConflict)

	_, err = svc.AdminNegotiate(context.Background(), &AdminNegotiateRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, OfferedPrice: price("12"),
	})
	requireKind(t, err, KindConflict)
}

func TestNegotiationAfterApprovalIsConflict(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")
	offer := adminOffer(t, svc, sub.ID, "25.00")

	_, err := respond(svc, sub.ID, offer.NegotiationID, ActionAccept)
	require.NoError(t, err)

	_, err = respond(svc, sub.ID, offer.NegotiationID, ActionAccept)
	requireKind(t, err, KindConflict)

	_, err = svc.AdminNegotiate(context.Background(), &AdminNegotiateRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, OfferedPrice: price("26"),
	})
	requireKind(t, err, KindConflict)

	err = svc.RejectSubmission(context.Background(), sub.ID, adminID, "changed my mind")
	requireKind(t, err, KindConflict)
}

func TestDoubleRejection(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")

	require.NoError(t, svc.RejectSubmission(ctx, sub.ID, adminID, "water damage"))

	err := svc.RejectSubmission(ctx, sub.ID, adminID, "again")
	requireKind(t, err, KindConflict)

	current, _ := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusRejected, current.Status)
	require.NotNil(t, current.AdminUserID)
	assert.Equal(t, adminID, *current.AdminUserID)

	requireKind(t, svc.RejectSubmission(ctx, 404, adminID, ""), KindNotFound)
}

func TestDoubleApproval(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")
	offer := adminOffer(t, svc, sub.ID, "25.00")
	_, err := respond(svc, sub.ID, offer.NegotiationID, ActionAccept)
	require.NoError(t, err)

	req := &ApproveSubmissionRequest{SubmissionID: sub.ID, AdminUserID: adminID, SellingPrice: price("35")}
	_, err = svc.ApproveSubmission(ctx, req)
	require.NoError(t, err)

	_, err = svc.ApproveSubmission(ctx, req)
	requireKind(t, err, KindConflict)

	var count int
	require.NoError(t, mem.View(ctx, func(q store.Queries) error {
		var err error
		_, count, err = q.SearchBooks(ctx, store.BookQuery{})
		return err
	}))
	assert.Equal(t, 1, count)
}

func TestApproveRequiresProfit(t *testing.T) {
	svc, mem, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")
	offer := adminOffer(t, svc, sub.ID, "25.00")
	_, err := respond(svc, sub.ID, offer.NegotiationID, ActionAccept)
	require.NoError(t, err)

	for _, selling := range []string{"25.00", "24.99"} {
		_, err = svc.ApproveSubmission(ctx, &ApproveSubmissionRequest{
			SubmissionID: sub.ID, AdminUserID: adminID, SellingPrice: price(selling),
		})
		requireKind(t, err, KindInvalidInput)
	}

	current, _ := loadSubmission(t, mem, sub.ID)
	assert.Equal(t, models.SubmissionStatusApproved, current.Status, "a failed approval changes nothing")

	_, err = svc.ApproveSubmission(ctx, &ApproveSubmissionRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, SellingPrice: price("25.01"),
	})
	require.NoError(t, err)
}

func TestApproveWithoutNegotiationUsesAskingPrice(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")

	res, err := svc.ApproveSubmission(context.Background(), &ApproveSubmissionRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, SellingPrice: price("45"),
	})
	require.NoError(t, err)
	assert.Equal(t, "30.00", res.AcquisitionCost.StringFixed(2))
}

func TestApproveDuringOpenNegotiation(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	sub := submitBook(t, svc, "30.00")
	adminOffer(t, svc, sub.ID, "25.00")

	_, err := svc.ApproveSubmission(context.Background(), &ApproveSubmissionRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, SellingPrice: price("45"),
	})
	requireKind(t, err, KindInvalidOperation)
}

func TestApproveRejectedSubmission(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")
	require.NoError(t, svc.RejectSubmission(ctx, sub.ID, adminID, ""))

	_, err := svc.ApproveSubmission(ctx, &ApproveSubmissionRequest{
		SubmissionID: sub.ID, AdminUserID: adminID, SellingPrice: price("45"),
	})
	requireKind(t, err, KindConflict)
}

func TestAdminNegotiateValidation(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := svc.AdminNegotiate(ctx, &AdminNegotiateRequest{SubmissionID: 1, AdminUserID: adminID, OfferedPrice: price("-1")})
	requireKind(t, err, KindInvalidInput)

	_, err = svc.AdminNegotiate(ctx, &AdminNegotiateRequest{SubmissionID: 404, AdminUserID: adminID, OfferedPrice: price("1")})
	requireKind(t, err, KindNotFound)
}

func TestGetSubmissionDetails(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	sub := submitBook(t, svc, "30.00")
	adminOffer(t, svc, sub.ID, "25.00")
	counter(t, svc, sub.ID, "28.00")

	owner := &models.Identity{UserID: sellerID, Role: models.RoleCustomer}
	details, err := svc.GetSubmissionDetails(ctx, sub.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, details.Submission.ID)
	require.Len(t, details.Negotiations, 2)
	assert.Equal(t, 1, details.Negotiations[0].RoundNumber)
	assert.Equal(t, 2, details.Negotiations[1].RoundNumber)

	staff := &models.Identity{UserID: adminID, Role: models.RoleAdmin}
	_, err = svc.GetSubmissionDetails(ctx, sub.ID, staff)
	require.NoError(t, err)

	stranger := &models.Identity{UserID: otherID, Role: models.RoleCustomer}
	_, err = svc.GetSubmissionDetails(ctx, sub.ID, stranger)
	requireKind(t, err, KindForbidden)

	_, err = svc.GetSubmissionDetails(ctx, 404, owner)
	requireKind(t, err, KindNotFound)
}

func TestListSubmissions(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t)
	ctx := context.Background()
	first := submitBook(t, svc, "30.00")
	second := submitBook(t, svc, "20.00")
	require.NoError(t, svc.RejectSubmission(ctx, second.ID, adminID, ""))

	mine, err := svc.ListMySubmissions(ctx, sellerID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := svc.ListMySubmissions(ctx, otherID)
	require.NoError(t, err)
	assert.Empty(t, none)

	queue, err := svc.ListSubmissionsByStatus(ctx, "")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, first.ID, queue[0].ID)

	rejected, err := svc.ListSubmissionsByStatus(ctx, "rejected")
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, second.ID, rejected[0].ID)

	_, err = svc.ListSubmissionsByStatus(ctx, "LOST")
	requireKind(t, err, KindInvalidInput)
}

func TestPublishFailureDoesNotFailCommit(t *testing.T) {
	mem := memstore.New()
	svc := NewSubmissionService(mem, &recordingPublisher{fail: true})

	sub := submitBook(t, svc, "30.00")
	offer := adminOffer(t, svc, sub.ID, "25.00")
	assert.Equal(t, 1, offer.RoundNumber)
}
