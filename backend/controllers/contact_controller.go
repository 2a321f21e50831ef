package controllers

import (
	"github.com/gofiber/fiber/v2"

	"studynotion/backend/mail"
	"studynotion/backend/utils"
)

type ContactController struct {
	Mailer mail.Sender
}

func NewContactController(mailer mail.Sender) *ContactController {
	return &ContactController{Mailer: mailer}
}

type ContactRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName"`
	Message     string `json:"message" validate:"required"`
	PhoneNo     string `json:"phoneNo"`
	CountryCode string `json:"countrycode"`
}

// Contact mails the submitter a copy of their message.
func (cc *ContactController) Contact(c *fiber.Ctx) error {
	var req ContactRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}

	body, err := mail.ContactResponseEmail(mail.ContactDetails{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Message:     req.Message,
		PhoneNo:     req.PhoneNo,
		CountryCode: req.CountryCode,
	})
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := cc.Mailer.Send(c.UserContext(), req.Email, mail.SubjectContactReceived, body); err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Email send successfully", nil)
}
