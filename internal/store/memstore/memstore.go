// Package memstore is an in-process implementation of store.Runner.
//
// Transactions are serialised behind one mutex and run against a copy of the
// data set; the copy replaces the live data only when the unit of work returns
// nil, so a failed transaction leaves no trace. It backs the service tests and
// STORE_DRIVER=memory for local runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"

	"github.com/shopspring/decimal"
)

var (
	_ store.Runner  = (*Store)(nil)
	_ store.Queries = (*view)(nil)
)

type cartKey struct {
	userID int64
	bookID int64
}

type state struct {
	next           map[string]int64
	users          map[int64]models.User
	submissions    map[int64]models.Submission
	negotiations   map[int64]models.Negotiation
	books          map[int64]models.Book
	cart           map[cartKey]time.Time
	orders         map[int64]models.Order
	lineItems      map[int64]models.OrderLineItem
	payments       map[int64]models.Payment
	paymentMethods map[int64]models.PaymentMethod
	events         map[string]models.ProcessedEvent
}

func newState() *state {
	return &state{
		next:           map[string]int64{},
		users:          map[int64]models.User{},
		submissions:    map[int64]models.Submission{},
		negotiations:   map[int64]models.Negotiation{},
		books:          map[int64]models.Book{},
		cart:           map[cartKey]time.Time{},
		orders:         map[int64]models.Order{},
		lineItems:      map[int64]models.OrderLineItem{},
		payments:       map[int64]models.Payment{},
		paymentMethods: map[int64]models.PaymentMethod{},
		events:         map[string]models.ProcessedEvent{},
	}
}

func (s *state) clone() *state {
	c := newState()
	copyMap(c.next, s.next)
	copyMap(c.users, s.users)
	copyMap(c.submissions, s.submissions)
	copyMap(c.negotiations, s.negotiations)
	copyMap(c.books, s.books)
	copyMap(c.cart, s.cart)
	copyMap(c.orders, s.orders)
	copyMap(c.lineItems, s.lineItems)
	copyMap(c.payments, s.payments)
	copyMap(c.paymentMethods, s.paymentMethods)
	copyMap(c.events, s.events)
	return c
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (s *state) id(table string) int64 {
	s.next[table]++
	return s.next[table]
}

// Store is a transactional in-memory data set
type Store struct {
	mu   sync.Mutex
	data *state
}

// New creates an empty store
func New() *Store {
	return &Store{data: newState()}
}

// View runs fn against the live data set
func (s *Store) View(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: s.data})
}

// WithTx runs fn against a private copy and publishes it only on success
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.data.clone()
	if err := fn(&view{st: working}); err != nil {
		return err
	}
	s.data = working
	return nil
}

// AddUser seeds a user and returns it with its assigned ID
func (s *Store) AddUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = s.data.id("users")
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	user.CreatedAt = now()
	s.data.users[user.ID] = user
	return user
}

func now() time.Time { return time.Now().UTC() }

func duplicate(constraint string) error {
	return fmt.Errorf("%w: %s", store.ErrDuplicate, constraint)
}

// view implements store.Queries; the caller holds the store mutex
type view struct {
	st *state
}

func (v *view) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := v.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (v *view) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range v.st.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *view) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	sub.ID = v.st.id("submissions")
	sub.SubmittedAt = now()
	sub.UpdatedAt = sub.SubmittedAt
	v.st.submissions[sub.ID] = *sub
	return nil
}

func (v *view) GetSubmission(ctx context.Context, id int64) (*models.Submission, error) {
	sub, ok := v.st.submissions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

func (v *view) GetSubmissionForUpdate(ctx context.Context, id int64) (*models.Submission, error) {
	return v.GetSubmission(ctx, id)
}

func (v *view) UpdateSubmissionStatus(ctx context.Context, id int64, status string, adminUserID *int64) error {
	sub, ok := v.st.submissions[id]
	if !ok {
		return store.ErrNotFound
	}
	sub.Status = status
	if adminUserID != nil {
		admin := *adminUserID
		sub.AdminUserID = &admin
	}
	sub.UpdatedAt = now()
	v.st.submissions[id] = sub
	return nil
}

func (v *view) listSubmissions(match func(models.Submission) bool) []models.Submission {
	out := []models.Submission{}
	for _, sub := range v.st.submissions {
		if match(sub) {
			out = append(out, sub)
		}
	}
	return out
}

func (v *view) ListSubmissionsByUser(ctx context.Context, userID int64) ([]models.Submission, error) {
	out := v.listSubmissions(func(s models.Submission) bool { return s.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (v *view) ListSubmissionsByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	out := v.listSubmissions(func(s models.Submission) bool { return s.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) CreateNegotiation(ctx context.Context, n *models.Negotiation) error {
	for _, existing := range v.st.negotiations {
		if existing.SubmissionID != n.SubmissionID {
			continue
		}
		if existing.RoundNumber == n.RoundNumber {
			return duplicate("price_negotiations_submission_id_round_number_key")
		}
		if n.OfferedBy == models.OfferedByAdmin && n.OfferStatus == models.OfferStatusPending &&
			existing.OfferedBy == models.OfferedByAdmin && existing.OfferStatus == models.OfferStatusPending {
			return duplicate("uq_pending_admin_offer")
		}
	}
	n.ID = v.st.id("price_negotiations")
	n.CreatedAt = now()
	v.st.negotiations[n.ID] = *n
	return nil
}

func (v *view) GetNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	n, ok := v.st.negotiations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (v *view) UpdateNegotiationStatus(ctx context.Context, id int64, status string) error {
	n, ok := v.st.negotiations[id]
	if !ok {
		return store.ErrNotFound
	}
	n.OfferStatus = status
	v.st.negotiations[id] = n
	return nil
}

func (v *view) matching(submissionID int64, filter store.NegotiationFilter) []models.Negotiation {
	out := []models.Negotiation{}
	for _, n := range v.st.negotiations {
		if n.SubmissionID == submissionID && filter.Matches(&n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out
}

func (v *view) LatestNegotiation(ctx context.Context, submissionID int64, filter store.NegotiationFilter) (*models.Negotiation, error) {
	rounds := v.matching(submissionID, filter)
	if len(rounds) == 0 {
		return nil, store.ErrNotFound
	}
	latest := rounds[len(rounds)-1]
	return &latest, nil
}

func (v *view) CountNegotiations(ctx context.Context, submissionID int64, filter store.NegotiationFilter) (int, error) {
	return len(v.matching(submissionID, filter)), nil
}

func (v *view) RejectPendingOffers(ctx context.Context, submissionID int64, offeredBy string) (int64, error) {
	var n int64
	filter := store.NegotiationFilter{OfferedBy: offeredBy, OfferStatus: models.OfferStatusPending}
	for _, round := range v.matching(submissionID, filter) {
		round.OfferStatus = models.OfferStatusRejected
		v.st.negotiations[round.ID] = round
		n++
	}
	return n, nil
}

func (v *view) ListNegotiations(ctx context.Context, submissionID int64) ([]models.Negotiation, error) {
	return v.matching(submissionID, store.NegotiationFilter{}), nil
}

func (v *view) CreateBook(ctx context.Context, book *models.Book) error {
	if book.SubmissionID != nil {
		for _, existing := range v.st.books {
			if existing.SubmissionID != nil && *existing.SubmissionID == *book.SubmissionID {
				return duplicate("books_submission_id_key")
			}
		}
	}
	book.ID = v.st.id("books")
	book.CreatedAt = now()
	book.UpdatedAt = book.CreatedAt
	v.st.books[book.ID] = *book
	return nil
}

func (v *view) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, ok := v.st.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &book, nil
}

func (v *view) GetBooksForUpdate(ctx context.Context, ids []int64) ([]models.Book, error) {
	out := []models.Book{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if book, ok := v.st.books[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, book)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) BookExistsForSubmission(ctx context.Context, submissionID int64) (bool, error) {
	for _, book := range v.st.books {
		if book.SubmissionID != nil && *book.SubmissionID == submissionID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) UpdateBookStatus(ctx context.Context, id int64, status string) error {
	book, ok := v.st.books[id]
	if !ok {
		return store.ErrNotFound
	}
	book.Status = status
	book.UpdatedAt = now()
	v.st.books[id] = book
	return nil
}

func (v *view) MarkBooksSold(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		book, ok := v.st.books[id]
		if !ok || book.Status != models.BookStatusAvailable {
			continue
		}
		book.Status = models.BookStatusSold
		book.UpdatedAt = now()
		v.st.books[id] = book
		n++
	}
	return n, nil
}

func (v *view) SearchBooks(ctx context.Context, q store.BookQuery) ([]models.Book, int, error) {
	text := strings.ToLower(q.Text)
	hits := []models.Book{}
	for _, book := range v.st.books {
		if book.Status != models.BookStatusAvailable {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(book.Title), text) &&
			!strings.Contains(strings.ToLower(book.Author), text) && book.ISBN != q.Text {
			continue
		}
		if q.CourseMajor != "" && (book.CourseMajor == nil || *book.CourseMajor != q.CourseMajor) {
			continue
		}
		hits = append(hits, book)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID > hits[j].ID })

	total := len(hits)
	if q.Offset >= total {
		return []models.Book{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < total {
		end = q.Offset + q.Limit
	}
	return hits[q.Offset:end], total, nil
}

func (v *view) ListCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	for key, addedAt := range v.st.cart {
		if key.userID != userID {
			continue
		}
		book := v.st.books[key.bookID]
		items = append(items, models.CartItem{
			UserID:       userID,
			BookID:       key.bookID,
			Title:        book.Title,
			Author:       book.Author,
			SellingPrice: book.SellingPrice,
			BookStatus:   book.Status,
			AddedAt:      addedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].BookID < items[j].BookID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items, nil
}

func (v *view) AddCartItem(ctx context.Context, userID, bookID int64) error {
	key := cartKey{userID: userID, bookID: bookID}
	if _, ok := v.st.cart[key]; ok {
		return duplicate("cart_items_pkey")
	}
	if _, ok := v.st.books[bookID]; !ok {
		return fmt.Errorf("cart_items_book_id_fkey: book %d does not exist", bookID)
	}
	v.st.cart[key] = now()
	return nil
}

func (v *view) RemoveCartItem(ctx context.Context, userID, bookID int64) error {
	key := cartKey{userID: userID, bookID: bookID}
	if _, ok := v.st.cart[key]; !ok {
		return store.ErrNotFound
	}
	delete(v.st.cart, key)
	return nil
}

func (v *view) ClearCart(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for key := range v.st.cart {
		if key.userID == userID {
			delete(v.st.cart, key)
			n++
		}
	}
	return n, nil
}

func (v *view) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.IdempotencyKey != nil {
		for _, existing := range v.st.orders {
			if existing.UserID == order.UserID && existing.IdempotencyKey != nil &&
				*existing.IdempotencyKey == *order.IdempotencyKey {
				return duplicate("orders_user_id_idempotency_key_key")
			}
		}
	}
	order.ID = v.st.id("orders")
	order.OrderDate = now()
	order.UpdatedAt = order.OrderDate
	v.st.orders[order.ID] = *order
	return nil
}

func (v *view) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	order, ok := v.st.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	order.TotalAmount = total
	order.UpdatedAt = now()
	v.st.orders[orderID] = order
	return nil
}

func (v *view) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := v.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

func (v *view) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	for _, order := range v.st.orders {
		if order.UserID == userID && order.IdempotencyKey != nil && *order.IdempotencyKey == key {
			order := order
			return &order, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *view) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	for _, order := range v.st.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (v *view) CreateOrderLineItem(ctx context.Context, item *models.OrderLineItem) error {
	if _, ok := v.st.orders[item.OrderID]; !ok {
		return fmt.Errorf("order_line_items_order_id_fkey: order %d does not exist", item.OrderID)
	}
	item.ID = v.st.id("order_line_items")
	v.st.lineItems[item.ID] = *item
	return nil
}

func (v *view) ListOrderLineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	items := []models.OrderLineItem{}
	for _, item := range v.st.lineItems {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (v *view) CreatePayment(ctx context.Context, payment *models.Payment) error {
	for _, existing := range v.st.payments {
		if existing.OrderID == payment.OrderID {
			return duplicate("payments_order_id_key")
		}
	}
	payment.ID = v.st.id("payments")
	payment.CreatedAt = now()
	v.st.payments[payment.ID] = *payment
	return nil
}

func (v *view) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	for _, payment := range v.st.payments {
		if payment.OrderID == orderID {
			payment := payment
			return &payment, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *view) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	pm.ID = v.st.id("payment_methods")
	pm.CreatedAt = now()
	v.st.paymentMethods[pm.ID] = *pm
	return nil
}

func (v *view) GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	pm, ok := v.st.paymentMethods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &pm, nil
}

func (v *view) ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	methods := []models.PaymentMethod{}
	for _, pm := range v.st.paymentMethods {
		if pm.UserID == userID {
			methods = append(methods, pm)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].ID < methods[j].ID })
	return methods, nil
}

func (v *view) DeletePaymentMethod(ctx context.Context, id int64) error {
	if _, ok := v.st.paymentMethods[id]; !ok {
		return store.ErrNotFound
	}
	delete(v.st.paymentMethods, id)
	for pid, payment := range v.st.payments {
		if payment.PaymentMethodID != nil && *payment.PaymentMethodID == id {
			payment.PaymentMethodID = nil
			v.st.payments[pid] = payment
		}
	}
	return nil
}

func (v *view) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	_, ok := v.st.events[eventID]
	return ok, nil
}

func (v *view) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	if _, ok := v.st.events[eventID]; !ok {
		v.st.events[eventID] = models.ProcessedEvent{EventID: eventID, EventType: eventType, ProcessedAt: now()}
	}
	return nil
}
