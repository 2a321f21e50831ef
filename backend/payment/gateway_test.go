package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studynotion/backend/apperrors"
)

type stubOrders struct {
	body    map[string]interface{}
	err     error
	delay   time.Duration
	got     map[string]interface{}
	fetched string
}

func (s *stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.got = data
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.body, s.err
}

func (s *stubOrders) Fetch(orderID string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.fetched = orderID
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.body, s.err
}

func TestSignatureVerification(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_1", ""))
}

func TestCreateOrderSendsMinorUnits(t *testing.T) {
	orders := &stubOrders{body: map[string]interface{}{"id": "order_9A33XWu170gUtm"}}
	g := &RazorpayGateway{orders: orders, timeout: time.Second}

	notes := map[string]string{NoteUserID: "u1"}
	order, err := g.CreateOrder(context.Background(), 30000, "INR", "rcpt_1", notes)
	require.NoError(t, err)

	assert.Equal(t, "order_9A33XWu170gUtm", order.ID)
	assert.Equal(t, int64(30000), order.Amount)
	assert.Equal(t, int64(30000), orders.got["amount"])
	assert.Equal(t, "INR", orders.got["currency"])
	assert.Equal(t, notes, orders.got["notes"])
}

func TestCreateOrderFailures(t *testing.T) {
	cases := []struct {
		name   string
		orders *stubOrders
	}{
		{"sdk error", &stubOrders{err: errors.New("BAD_REQUEST_ERROR")}},
		{"missing id", &stubOrders{body: map[string]interface{}{}}},
		{"timeout", &stubOrders{body: map[string]interface{}{"id": "late"}, delay: 200 * time.Millisecond}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &RazorpayGateway{orders: tc.orders, timeout: 20 * time.Millisecond}
			_, err := g.CreateOrder(context.Background(), 100, "INR", "rcpt", nil)
			assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
		})
	}
}

func TestFetchOrderReadsNotes(t *testing.T) {
	userID := uuid.New()
	courses := []uuid.UUID{uuid.New(), uuid.New()}
	notes := map[string]interface{}{}
	for k, v := range OrderNotes(userID, courses) {
		notes[k] = v
	}
	orders := &stubOrders{body: map[string]interface{}{
		"id":       "order_1",
		"amount":   float64(49900),
		"currency": "INR",
		"receipt":  "rcpt_1",
		"notes":    notes,
	}}
	g := &RazorpayGateway{orders: orders, timeout: time.Second}

	order, err := g.FetchOrder(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, "order_1", orders.fetched)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "rcpt_1", order.Receipt)
	assert.True(t, order.Matches(userID, []uuid.UUID{courses[1], courses[0]}))
	assert.False(t, order.Matches(userID, courses[:1]))
	assert.False(t, order.Matches(uuid.New(), courses))
}

func TestFetchOrderWithoutNotesMatchesNothing(t *testing.T) {
	orders := &stubOrders{body: map[string]interface{}{"id": "order_1", "notes": []interface{}{}}}
	g := &RazorpayGateway{orders: orders}

	order, err := g.FetchOrder(context.Background(), "order_1")
	require.NoError(t, err)
	assert.Empty(t, order.Notes)
	assert.False(t, order.Matches(uuid.New(), []uuid.UUID{uuid.New()}))
}

func TestFetchOrderFailures(t *testing.T) {
	cases := []struct {
		name   string
		orders *stubOrders
	}{
		{"sdk error", &stubOrders{err: errors.New("BAD_REQUEST_ERROR")}},
		{"missing id", &stubOrders{body: map[string]interface{}{}}},
		{"timeout", &stubOrders{body: map[string]interface{}{"id": "late"}, delay: 200 * time.Millisecond}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &RazorpayGateway{orders: tc.orders, timeout: 20 * time.Millisecond}
			_, err := g.FetchOrder(context.Background(), "order_1")
			assert.ErrorIs(t, err, apperrors.ErrOrderLookup)
		})
	}
}

func TestCourseSetDigestIgnoresOrderAndDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, CourseSetDigest([]uuid.UUID{a, b}), CourseSetDigest([]uuid.UUID{b, a, b}))
	assert.NotEqual(t, CourseSetDigest([]uuid.UUID{a}), CourseSetDigest([]uuid.UUID{a, b}))
	assert.Len(t, CourseSetDigest([]uuid.UUID{a}), 64)
}

func TestNewReceiptFitsGatewayLimit(t *testing.T) {
	r := NewReceipt()
	assert.LessOrEqual(t, len(r), 40)
	assert.NotEqual(t, r, NewReceipt())
}
