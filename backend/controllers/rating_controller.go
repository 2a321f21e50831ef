package controllers

import (
	"database/sql"
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/middleware"
	"studynotion/backend/models"
	"studynotion/backend/repository"
	"studynotion/backend/utils"
)

type RatingController struct {
	DB    *gorm.DB
	Store repository.Store
}

func NewRatingController(db *gorm.DB, store repository.Store) *RatingController {
	return &RatingController{DB: db, Store: store}
}

// CreateRatingRequest defines the request body for reviewing a course
type CreateRatingRequest struct {
	Rating   float64 `json:"rating" validate:"required,min=1,max=5" example:"5"`
	Review   string  `json:"review" validate:"required" example:"This course was amazing!"`
	CourseID string  `json:"courseId" validate:"required"`
}

// CreateRating godoc
// @Summary Review a course
// @Description Enrolled students may review a course once
// @Tags ratings
// @Accept json
// @Produce json
// @Param input body CreateRatingRequest true "Rating"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /course/createRating [post]
func (rc *RatingController) CreateRating(c *fiber.Ctx) error {
	var req CreateRatingRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseID, err := utils.ParseUUID(req.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	userID := middleware.UserID(c)
	ctx := c.UserContext()

	enrolled, err := rc.Store.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	if !enrolled {
		return utils.Fail(c, apperrors.ErrNotEnrolled)
	}

	review := models.RatingAndReview{UserID: userID, CourseID: courseID, Rating: req.Rating, Review: req.Review}
	if err := rc.DB.WithContext(ctx).Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Fail(c, apperrors.ErrAlreadyReviewed)
		}
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Rating and Review created Successfully", review)
}

// GetAverageRating returns 0 for a course without reviews.
func (rc *RatingController) GetAverageRating(c *fiber.Ctx) error {
	raw := c.Query("courseId")
	if raw == "" {
		raw = c.FormValue("courseId")
	}
	courseID, err := utils.ParseUUID(raw)
	if err != nil {
		return utils.Fail(c, err)
	}

	var avg sql.NullFloat64
	err = rc.DB.WithContext(c.UserContext()).Model(&models.RatingAndReview{}).
		Select("AVG(rating)").
		Where("course_id = ?", courseID).
		Row().Scan(&avg)
	if err != nil {
		return utils.Fail(c, err)
	}
	averageRating := 0.0
	if avg.Valid {
		averageRating = math.Round(avg.Float64*100) / 100
	}

	return utils.Respond(c, fiber.StatusOK, "Average rating fetched", fiber.Map{"averageRating": averageRating})
}

func (rc *RatingController) GetReviews(c *fiber.Ctx) error {
	var reviews []models.RatingAndReview
	err := rc.DB.WithContext(c.UserContext()).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name", "email", "image")
		}).
		Preload("Course", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "course_name")
		}).
		Order("rating DESC").
		Find(&reviews).Error
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "All reviews fetched successfully", reviews)
}
