package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studynotion/backend/apperrors"
	"studynotion/backend/models"
	"studynotion/backend/payment"
	"studynotion/backend/repository"
)

type fakeGateway struct {
	mu     sync.Mutex
	orders []payment.Order
	err    error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	order := payment.Order{
		ID:       fmt.Sprintf("order_%d", len(g.orders)+1),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}
	g.orders = append(g.orders, order)
	return &order, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.orders {
		if g.orders[i].ID == orderID {
			order := g.orders[i]
			return &order, nil
		}
	}
	return nil, apperrors.ErrOrderLookup
}

// open registers an order as if capture had created it, for course sets
// capture itself would refuse.
func (g *fakeGateway) open(userID uuid.UUID, courseIDs ...uuid.UUID) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("order_%d", len(g.orders)+1)
	g.orders = append(g.orders, payment.Order{ID: id, Currency: "INR", Notes: payment.OrderNotes(userID, courseIDs)})
	return id
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var errSMTPDown = errors.New("smtp down")

type fixture struct {
	store  *repository.MemoryStore
	ledger *Ledger
	user   models.User
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	user := store.PutUser(models.User{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		AccountType: models.RoleStudent,
	})
	return &fixture{store: store, ledger: NewLedger(store, zerolog.Nop()), user: user}
}

func (f *fixture) course(price float64, durations ...string) models.Course {
	subs := make([]models.SubSection, 0, len(durations))
	for _, d := range durations {
		subs = append(subs, models.SubSection{Title: "Lecture", TimeDuration: d})
	}
	return f.store.PutCourse(models.Course{
		CourseName:    "Course",
		Price:         price,
		Status:        models.StatusPublished,
		CourseContent: []models.Section{{SectionName: "Section 1", SubSections: subs}},
	})
}
