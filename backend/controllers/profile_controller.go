package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/middleware"
	"studynotion/backend/models"
	"studynotion/backend/services"
	"studynotion/backend/storage"
	"studynotion/backend/utils"
)

const avatarSize = 1000

type ProfileController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Accounts *services.AccountService
	Uploader storage.Uploader
}

func NewProfileController(db *gorm.DB, cfg *config.Config, accounts *services.AccountService, uploader storage.Uploader) *ProfileController {
	return &ProfileController{DB: db, Cfg: cfg, Accounts: accounts, Uploader: uploader}
}

type UpdateProfileRequest struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Gender        string `json:"gender" validate:"required"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	About         string `json:"about" validate:"required"`
	ContactNumber string `json:"contactNumber" validate:"required"`
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags profile
// @Accept json
// @Produce json
// @Param input body UpdateProfileRequest true "Profile"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /profile/updateProfile [put]
func (pc *ProfileController) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return utils.BadRequest(c, "Invalid dateOfBirth")
	}
	date := datatypes.Date(dob)
	userID := middleware.UserID(c)
	ctx := c.UserContext()

	err = pc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"first_name": req.FirstName,
			"last_name":  req.LastName,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrUserNotFound
		}

		var profile models.Profile
		if err := tx.Where(models.Profile{UserID: userID}).FirstOrInit(&profile).Error; err != nil {
			return err
		}
		profile.Gender = req.Gender
		profile.DateOfBirth = &date
		profile.About = req.About
		profile.ContactNumber = req.ContactNumber
		return tx.Save(&profile).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	user, err := pc.loadUser(c)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Profile updated successfully", fiber.Map{"updatedUserDetails": user})
}

func (pc *ProfileController) GetUserDetails(c *fiber.Ctx) error {
	user, err := pc.loadUser(c)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "User Data fetched successfully", user)
}

// UpdateDisplayPicture re-encodes the multipart displayPicture as WebP and stores it as the avatar.
func (pc *ProfileController) UpdateDisplayPicture(c *fiber.Ctx) error {
	fh, err := c.FormFile("displayPicture")
	if err != nil {
		return utils.BadRequest(c, "displayPicture is required")
	}

	imageURL, err := storage.UploadImage(c.UserContext(), pc.Uploader, fh, pc.Cfg.OSSFolder, avatarSize, avatarSize)
	if err != nil {
		return utils.Fail(c, err)
	}

	res := pc.DB.WithContext(c.UserContext()).Model(&models.User{}).
		Where("id = ?", middleware.UserID(c)).
		Update("image", imageURL)
	if res.Error != nil {
		return utils.Fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.Fail(c, apperrors.ErrUserNotFound)
	}

	user, err := pc.loadUser(c)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Image Updated successfully", user)
}

func (pc *ProfileController) DeleteProfile(c *fiber.Ctx) error {
	if err := pc.Accounts.DeleteAccount(c.UserContext(), middleware.UserID(c)); err != nil {
		return utils.Fail(c, err)
	}
	c.ClearCookie(utils.TokenCookie)
	return utils.Success(c, fiber.StatusOK, "User deleted successfully", nil)
}

func (pc *ProfileController) GetEnrolledCourses(c *fiber.Ctx) error {
	courses, err := pc.Accounts.EnrolledCourses(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Enrolled courses fetched successfully", courses)
}

func (pc *ProfileController) InstructorDashboard(c *fiber.Ctx) error {
	stats, err := pc.Accounts.InstructorDashboard(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Instructor dashboard fetched successfully", fiber.Map{"courses": stats})
}

func (pc *ProfileController) loadUser(c *fiber.Ctx) (*models.User, error) {
	var user models.User
	err := pc.DB.WithContext(c.UserContext()).Preload("Profile").First(&user, "id = ?", middleware.UserID(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := pc.DB.WithContext(c.UserContext()).Model(&models.Enrollment{}).
		Where("user_id = ?", user.ID).
		Order("created_at").
		Pluck("course_id", &user.Courses).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
