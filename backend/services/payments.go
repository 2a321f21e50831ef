package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"studynotion/backend/apperrors"
	"studynotion/backend/mail"
	"studynotion/backend/payment"
	"studynotion/backend/repository"
)

type PaymentState string

const (
	StateInitiated            PaymentState = "Initiated"
	StateAwaitingVerification PaymentState = "AwaitingVerification"
	StateVerified             PaymentState = "Verified"
	StateEnrolled             PaymentState = "Enrolled"
	StateNotifiedSuccess      PaymentState = "NotifiedSuccess"
	StateRejected             PaymentState = "Rejected"
	StatePartialFailure       PaymentState = "PartialFailure"
)

type PaymentOptions struct {
	Secret       string
	Currency     string
	DashboardURL string
}

type PaymentService struct {
	store   repository.Store
	ledger  *Ledger
	gateway payment.Gateway
	mailer  mail.Sender
	opts    PaymentOptions
	logger  zerolog.Logger
}

func NewPaymentService(store repository.Store, ledger *Ledger, gateway payment.Gateway, mailer mail.Sender, opts PaymentOptions, logger zerolog.Logger) *PaymentService {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &PaymentService{
		store:   store,
		ledger:  ledger,
		gateway: gateway,
		mailer:  mailer,
		opts:    opts,
		logger:  logger,
	}
}

type CaptureResult struct {
	State PaymentState   `json:"state"`
	Order *payment.Order `json:"order"`
}

// Capture prices the courses and opens a gateway order. Nothing is persisted.
func (s *PaymentService) Capture(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) (*CaptureResult, error) {
	courseIDs = dedupe(courseIDs)
	if len(courseIDs) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "Please provide Course ID")
	}

	var total float64
	for _, courseID := range courseIDs {
		course, err := s.store.FindCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		enrolled, err := s.store.IsEnrolled(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		if enrolled {
			return nil, fmt.Errorf("course %s: %w", courseID, apperrors.ErrAlreadyEnrolled)
		}
		total += course.Price
	}

	amount := int64(math.Round(total * 100))
	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("state", string(StateInitiated)).
		Int("courses", len(courseIDs)).
		Msg("creating payment order")
	order, err := s.gateway.CreateOrder(ctx, amount, s.opts.Currency, payment.NewReceipt(), payment.OrderNotes(userID, courseIDs))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("order_id", order.ID).
		Int64("amount", amount).
		Msg("payment order created")
	return &CaptureResult{State: StateAwaitingVerification, Order: order}, nil
}

type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
	CourseIDs []uuid.UUID
	UserID    uuid.UUID
}

type CourseFailure struct {
	CourseID uuid.UUID `json:"courseId"`
	Reason   string    `json:"reason"`
}

type VerifyResult struct {
	State              PaymentState    `json:"state"`
	Enrolled           []uuid.UUID     `json:"enrolled"`
	Failed             []CourseFailure `json:"failed,omitempty"`
	NotificationFailed []uuid.UUID     `json:"notificationFailed,omitempty"`
}

// Verify checks the gateway signature, then that the order was opened by this
// user for exactly these courses, and enrolls the payer course by course.
// A failed course does not roll back the ones before it; the returned error
// combines every enrollment failure.
func (s *PaymentService) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.PaymentID) == "" ||
		strings.TrimSpace(req.Signature) == "" || len(req.CourseIDs) == 0 || req.UserID == uuid.Nil {
		return nil, apperrors.New(apperrors.KindValidation, "Payment Failed")
	}
	if !payment.VerifySignature(s.opts.Secret, req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn().Str("order_id", req.OrderID).Msg("payment signature mismatch")
		return &VerifyResult{State: StateRejected, Enrolled: []uuid.UUID{}}, apperrors.ErrInvalidSignature
	}

	courseIDs := dedupe(req.CourseIDs)
	order, err := s.gateway.FetchOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Matches(req.UserID, courseIDs) {
		s.logger.Warn().
			Str("order_id", req.OrderID).
			Str("user_id", req.UserID.String()).
			Msg("payment order does not match submitted courses")
		return &VerifyResult{State: StateRejected, Enrolled: []uuid.UUID{}}, apperrors.ErrOrderMismatch
	}

	user, err := s.store.FindUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{State: StateVerified, Enrolled: []uuid.UUID{}}
	var errs error
	for _, courseID := range courseIDs {
		if err := s.ledger.Enroll(ctx, req.UserID, courseID); err != nil {
			errs = multierr.Append(errs, err)
			result.Failed = append(result.Failed, CourseFailure{CourseID: courseID, Reason: failureReason(err)})
			continue
		}
		result.Enrolled = append(result.Enrolled, courseID)

		course, err := s.store.FindCourse(ctx, courseID)
		if err == nil {
			err = s.sendEnrollmentEmail(ctx, user.Email, user.FirstName+" "+user.LastName, course.CourseName)
		}
		if err != nil {
			result.NotificationFailed = append(result.NotificationFailed, courseID)
			s.logger.Error().Err(err).
				Str("user_id", req.UserID.String()).
				Str("course_id", courseID.String()).
				Msg("enrollment email failed")
		}
	}

	if errs != nil {
		result.State = StatePartialFailure
		s.logger.Error().Err(errs).
			Str("order_id", req.OrderID).
			Int("enrolled", len(result.Enrolled)).
			Int("failed", len(result.Failed)).
			Msg("payment verified with enrollment failures")
		return result, errs
	}
	result.State = StateEnrolled
	return result, nil
}

// SendSuccessEmail mails the payment receipt. amount is in minor units.
func (s *PaymentService) SendSuccessEmail(ctx context.Context, userID uuid.UUID, orderID, paymentID string, amount int64) (PaymentState, error) {
	if userID == uuid.Nil || strings.TrimSpace(orderID) == "" || strings.TrimSpace(paymentID) == "" || amount <= 0 {
		return "", apperrors.New(apperrors.KindValidation, "Please provide all the details")
	}
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return "", err
	}

	body, err := mail.PaymentSuccessEmail(user.FirstName+" "+user.LastName, amount, orderID, paymentID)
	if err != nil {
		return "", err
	}
	if err := s.mailer.Send(ctx, user.Email, mail.SubjectPaymentSuccess, body); err != nil {
		return "", err
	}
	return StateNotifiedSuccess, nil
}

func (s *PaymentService) sendEnrollmentEmail(ctx context.Context, to, name, courseName string) error {
	body, err := mail.CourseEnrollmentEmail(courseName, name, s.opts.DashboardURL)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, to, mail.SubjectCourseEnrollment(courseName), body)
}

func failureReason(err error) string {
	if e := apperrors.As(err); e != nil {
		return e.Message
	}
	return "Internal server error"
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
