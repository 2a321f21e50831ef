// Package payment talks to the Razorpay order API and checks checkout signatures.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"

	"studynotion/backend/apperrors"
)

// Order note keys binding a gateway order to its buyer and course set.
const (
	NoteUserID  = "user_id"
	NoteCourses = "courses"
)

type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Matches reports whether the order was opened for this buyer and course set.
func (o *Order) Matches(userID uuid.UUID, courseIDs []uuid.UUID) bool {
	want := OrderNotes(userID, courseIDs)
	return o.Notes[NoteUserID] == want[NoteUserID] && o.Notes[NoteCourses] == want[NoteCourses]
}

// Gateway creates and looks up orders. Amounts are in minor currency units.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
}

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders  orderAPI
	timeout time.Duration
}

func NewRazorpayGateway(key, secret string, timeout time.Duration) *RazorpayGateway {
	client := razorpay.NewClient(key, secret)
	return &RazorpayGateway{orders: client.Order, timeout: timeout}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.orders.Create(map[string]interface{}{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
			"notes":    notes,
		}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPaymentGateway, err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: order id missing from response", apperrors.ErrPaymentGateway)
	}
	return &Order{ID: id, Amount: amount, Currency: currency, Receipt: receipt, Notes: notes}, nil
}

func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.orders.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrOrderLookup, err)
	}
	order := parseOrder(body)
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order id missing from response", apperrors.ErrOrderLookup)
	}
	return order, nil
}

// call gives up after the gateway timeout; the SDK call itself is not
// cancellable, so a late reply is dropped.
func (g *RazorpayGateway) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.body, r.err
	}
}

// parseOrder reads an order entity. Razorpay sends notes as [] when empty.
func parseOrder(body map[string]interface{}) *Order {
	order := &Order{Notes: map[string]string{}}
	order.ID, _ = body["id"].(string)
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	switch v := body["amount"].(type) {
	case float64:
		order.Amount = int64(v)
	case int64:
		order.Amount = v
	case int:
		order.Amount = int64(v)
	}
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		for k, v := range notes {
			if s, ok := v.(string); ok {
				order.Notes[k] = s
			}
		}
	}
	return order
}

// OrderNotes ties an order to the buyer and a digest of the course set, since
// notes are limited in length and count.
func OrderNotes(userID uuid.UUID, courseIDs []uuid.UUID) map[string]string {
	return map[string]string{
		NoteUserID:  userID.String(),
		NoteCourses: CourseSetDigest(courseIDs),
	}
}

// CourseSetDigest ignores order and duplicates.
func CourseSetDigest(courseIDs []uuid.UUID) string {
	seen := make(map[string]struct{}, len(courseIDs))
	keys := make([]string, 0, len(courseIDs))
	for _, id := range courseIDs {
		k := id.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, ",")))
	return hex.EncodeToString(sum[:])
}

// NewReceipt returns a receipt id within the gateway's 40 character limit.
func NewReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sign computes hex(HMAC-SHA256(secret, orderID|paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
