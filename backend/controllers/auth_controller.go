package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/mail"
	"studynotion/backend/middleware"
	"studynotion/backend/models"
	"studynotion/backend/utils"
)

const (
	otpTTL        = 5 * time.Minute
	resetTokenTTL = time.Hour
	cookieTTL     = 3 * 24 * time.Hour
)

type AuthController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer mail.Sender
}

func NewAuthController(db *gorm.DB, cfg *config.Config, mailer mail.Sender) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Mailer: mailer}
}

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SignupRequest struct {
	FirstName       string      `json:"firstName" validate:"required"`
	LastName        string      `json:"lastName" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required"`
	ConfirmPassword string      `json:"confirmPassword" validate:"required"`
	AccountType     models.Role `json:"accountType"`
	ContactNumber   string      `json:"contactNumber"`
	OTP             string      `json:"otp" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

type ResetPasswordTokenRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Token           string `json:"token" validate:"required"`
}

// SendOTP godoc
// @Summary Send signup OTP
// @Description Emails a six digit code valid for five minutes
// @Tags auth
// @Accept json
// @Produce json
// @Param input body SendOTPRequest true "Email"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/sendotp [post]
func (ac *AuthController) SendOTP(c *fiber.Ctx) error {
	var req SendOTPRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := ac.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return utils.Fail(c, err)
	}
	if count > 0 {
		return utils.Fail(c, apperrors.NewWithStatus(apperrors.KindConflict, fiber.StatusUnauthorized, "User is Already Registered"))
	}

	code, err := ac.uniqueOTP(c)
	if err != nil {
		return utils.Fail(c, err)
	}
	otp := models.OTP{Email: email, Code: code, ExpiresAt: time.Now().Add(otpTTL)}
	if err := ac.DB.WithContext(c.UserContext()).Create(&otp).Error; err != nil {
		return utils.Fail(c, err)
	}

	body, err := mail.OTPEmail(code)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := ac.Mailer.Send(c.UserContext(), email, mail.SubjectOTP, body); err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "OTP Sent Successfully", nil)
}

// Signup godoc
// @Summary Register a new user
// @Description Verifies the OTP and creates the user with an empty profile
// @Tags auth
// @Accept json
// @Produce json
// @Param input body SignupRequest true "Signup data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /auth/signup [post]
func (ac *AuthController) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	if req.Password != req.ConfirmPassword {
		return utils.BadRequest(c, "Password and Confirm Password Does not match. Please Try Again.")
	}
	if req.AccountType == "" {
		req.AccountType = models.RoleStudent
	}
	if !req.AccountType.Valid() {
		return utils.BadRequest(c, "Invalid account type")
	}
	email := normalizeEmail(req.Email)
	ctx := c.UserContext()

	var existing int64
	if err := ac.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return utils.Fail(c, err)
	}
	if existing > 0 {
		return utils.BadRequest(c, "User already exists. Please sign in to continue.")
	}

	var otp models.OTP
	err := ac.DB.WithContext(ctx).Where("email = ?", email).Order("created_at DESC").First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && (otp.Code != strings.TrimSpace(req.OTP) || otp.Expired(time.Now()))) {
		return utils.BadRequest(c, "The OTP is not valid")
	}
	if err != nil {
		return utils.Fail(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		Password:    string(hashedPassword),
		AccountType: req.AccountType,
		Active:      true,
		Approved:    req.AccountType != models.RoleInstructor,
		Image:       avatarURL(req.FirstName, req.LastName),
		Profile:     &models.Profile{ContactNumber: req.ContactNumber},
	}
	err = ac.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.NewWithStatus(apperrors.KindConflict, fiber.StatusBadRequest, "User already exists. Please sign in to continue.")
			}
			return err
		}
		return tx.Where("email = ?", email).Delete(&models.OTP{}).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}
	user.Courses = nil

	return utils.Success(c, fiber.StatusOK, "User registered successfully", user)
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param input body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}

	var user models.User
	err := ac.DB.WithContext(c.UserContext()).Preload("Profile").Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Unauthorized(c, "User is not Registered with Us Please SignUp to Continue")
	}
	if err != nil {
		return utils.Fail(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return utils.Unauthorized(c, "Password is incorrect")
	}

	token, err := utils.GenerateJWTToken(&user, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	c.Cookie(&fiber.Cookie{
		Name:     utils.TokenCookie,
		Value:    token,
		Expires:  time.Now().Add(cookieTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.Respond(c, fiber.StatusOK, "User Login Success", fiber.Map{
		"token": token,
		"user":  user,
	})
}

// ChangePassword godoc
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param input body ChangePasswordRequest true "Passwords"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/changepassword [post]
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	if req.ConfirmNewPassword != "" && req.ConfirmNewPassword != req.NewPassword {
		return utils.BadRequest(c, "The password and confirm password does not match")
	}
	ctx := c.UserContext()

	var user models.User
	if err := ac.DB.WithContext(ctx).First(&user, "id = ?", middleware.UserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, apperrors.ErrUserNotFound)
		}
		return utils.Fail(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return utils.Unauthorized(c, "The password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}
	if err := ac.DB.WithContext(ctx).Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		return utils.Fail(c, err)
	}

	body, err := mail.PasswordUpdatedEmail(user.Email, user.FirstName+" "+user.LastName)
	if err == nil {
		err = ac.Mailer.Send(ctx, user.Email, mail.SubjectPasswordUpdated, body)
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID.String()).Msg("password updated email failed")
	}

	return utils.Success(c, fiber.StatusOK, "Password updated successfully", nil)
}

// ResetPasswordToken stores a one hour reset token on the user and emails the link.
func (ac *AuthController) ResetPasswordToken(c *fiber.Ctx) error {
	var req ResetPasswordTokenRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	var user models.User
	if err := ac.DB.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, fmt.Sprintf("This Email: %s is not Registered With Us Enter a Valid Email", req.Email))
		}
		return utils.Fail(c, err)
	}

	token, err := randomToken(20)
	if err != nil {
		return utils.Fail(c, err)
	}
	expires := time.Now().Add(resetTokenTTL)
	err = ac.DB.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
	}).Error
	if err != nil {
		return utils.Fail(c, err)
	}

	link := strings.TrimRight(ac.Cfg.FrontendURL, "/") + "/update-password/" + url.PathEscape(token)
	body, err := mail.PasswordResetEmail(link)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := ac.Mailer.Send(ctx, user.Email, mail.SubjectPasswordReset, body); err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Email Sent Successfully, Please Check Your Email to Continue Further", nil)
}

func (ac *AuthController) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	if req.Password != req.ConfirmPassword {
		return utils.BadRequest(c, "Password and Confirm Password Does not Match")
	}
	ctx := c.UserContext()

	var user models.User
	if err := ac.DB.WithContext(ctx).Where("reset_token = ?", req.Token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.BadRequest(c, "Token is Invalid")
		}
		return utils.Fail(c, err)
	}
	if user.ResetTokenExpires == nil || !time.Now().Before(*user.ResetTokenExpires) {
		return utils.Forbidden(c, "Token is Expired, Please Regenerate Your Token")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}
	err = ac.DB.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"password":            string(hashedPassword),
		"reset_token":         "",
		"reset_token_expires": nil,
	}).Error
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Password Reset Successful", nil)
}

// uniqueOTP draws codes until none of the live OTPs share it.
func (ac *AuthController) uniqueOTP(c *fiber.Ctx) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := GenerateOTP()
		if err != nil {
			return "", err
		}
		var count int64
		err = ac.DB.WithContext(c.UserContext()).Model(&models.OTP{}).
			Where("code = ? AND expires_at > ?", code, time.Now()).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique otp")
}

// GenerateOTP returns six random decimal digits.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func avatarURL(firstName, lastName string) string {
	seed := strings.TrimSpace(firstName + " " + lastName)
	return "https://api.dicebear.com/5.x/initials/svg?seed=" + url.QueryEscape(seed)
}
