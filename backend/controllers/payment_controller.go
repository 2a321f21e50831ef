package controllers

import (
	"github.com/gofiber/fiber/v2"

	"studynotion/backend/middleware"
	"studynotion/backend/services"
	"studynotion/backend/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

type CapturePaymentRequest struct {
	Courses []string `json:"courses"`
}

type VerifyPaymentRequest struct {
	OrderID   string   `json:"razorpay_order_id"`
	PaymentID string   `json:"razorpay_payment_id"`
	Signature string   `json:"razorpay_signature"`
	Courses   []string `json:"courses"`
}

type PaymentSuccessEmailRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount"`
}

// CapturePayment godoc
// @Summary Open a gateway order for the selected courses
// @Tags payment
// @Accept json
// @Produce json
// @Param input body CapturePaymentRequest true "Course ids"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /payment/capturePayment [post]
func (pc *PaymentController) CapturePayment(c *fiber.Ctx) error {
	var req CapturePaymentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseIDs, err := utils.ParseUUIDs(req.Courses)
	if err != nil {
		return utils.Fail(c, err)
	}

	res, err := pc.Payments.Capture(c.UserContext(), middleware.UserID(c), courseIDs)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Order created", fiber.Map{
		"state": res.State,
		"data":  res.Order,
	})
}

// VerifyPayment godoc
// @Summary Verify the gateway signature and enroll the student
// @Tags payment
// @Accept json
// @Produce json
// @Param input body VerifyPaymentRequest true "Gateway callback"
// @Success 200 {object} services.VerifyResult
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /payment/verifyPayment [post]
func (pc *PaymentController) VerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseIDs, err := utils.ParseUUIDs(req.Courses)
	if err != nil {
		return utils.Fail(c, err)
	}

	res, err := pc.Payments.Verify(c.UserContext(), services.VerifyRequest{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		CourseIDs: courseIDs,
		UserID:    middleware.UserID(c),
	})
	if err != nil {
		if res != nil && res.State == services.StatePartialFailure {
			return utils.Error(c, fiber.StatusInternalServerError, "Payment verified but some courses could not be enrolled", res)
		}
		return utils.Fail(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Payment Verified", fiber.Map{
		"state":              res.State,
		"enrolled":           res.Enrolled,
		"notificationFailed": res.NotificationFailed,
	})
}

func (pc *PaymentController) SendPaymentSuccessEmail(c *fiber.Ctx) error {
	var req PaymentSuccessEmailRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}

	state, err := pc.Payments.SendSuccessEmail(c.UserContext(), middleware.UserID(c), req.OrderID, req.PaymentID, req.Amount)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Payment success email sent", fiber.Map{"state": state})
}
