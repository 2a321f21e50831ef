package controllers

import (
	"errors"
	"math/rand"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/models"
	"studynotion/backend/repository"
	"studynotion/backend/utils"
)

const topSellingLimit = 10

type CategoryController struct {
	DB *gorm.DB
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{DB: db}
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type CategoryPageRequest struct {
	CategoryID string `json:"categoryId" validate:"required"`
}

func (cc *CategoryController) CreateCategory(c *fiber.Ctx) error {
	var req CreateCategoryRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}

	category := models.Category{Name: req.Name, Description: req.Description}
	if err := cc.DB.WithContext(c.UserContext()).Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.BadRequest(c, "Category already exists")
		}
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Category Created Successfully", category)
}

func (cc *CategoryController) ShowAllCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := cc.DB.WithContext(c.UserContext()).Order("name ASC").Find(&categories).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "All categories returned successfully", categories)
}

// GetCategoryPageDetails returns the selected category with its published
// courses, one other random category and the best-selling courses overall.
func (cc *CategoryController) GetCategoryPageDetails(c *fiber.Ctx) error {
	var req CategoryPageRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	categoryID, err := utils.ParseUUID(req.CategoryID)
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	db := cc.DB.WithContext(ctx)

	published := func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", models.StatusPublished).Order("created_at DESC")
	}

	var selected models.Category
	err = db.Preload("Courses", published).Preload("Courses.RatingAndReviews").First(&selected, "id = ?", categoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, apperrors.ErrCategoryNotFound)
	}
	if err != nil {
		return utils.Fail(c, err)
	}
	if len(selected.Courses) == 0 {
		return utils.NotFound(c, "No courses found for the selected category.")
	}
	if err := repository.FillEnrollments(ctx, cc.DB, selected.Courses); err != nil {
		return utils.Fail(c, err)
	}

	var others []models.Category
	if err := db.Where("id <> ?", categoryID).Find(&others).Error; err != nil {
		return utils.Fail(c, err)
	}
	var different *models.Category
	if len(others) > 0 {
		pick := others[rand.Intn(len(others))]
		if err := db.Model(&pick).Association("Courses").Find(&pick.Courses, "status = ?", models.StatusPublished); err != nil {
			return utils.Fail(c, err)
		}
		if err := repository.FillEnrollments(ctx, cc.DB, pick.Courses); err != nil {
			return utils.Fail(c, err)
		}
		different = &pick
	}

	var topSelling []models.Course
	err = db.
		Select("courses.*").
		Joins("LEFT JOIN course_enrollments ON course_enrollments.course_id = courses.id").
		Where("courses.status = ?", models.StatusPublished).
		Group("courses.id").
		Order("COUNT(course_enrollments.user_id) DESC, courses.created_at DESC").
		Limit(topSellingLimit).
		Find(&topSelling).Error
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := repository.FillEnrollments(ctx, cc.DB, topSelling); err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Category page details fetched successfully", fiber.Map{
		"selectedCategory":   selected,
		"differentCategory":  different,
		"mostSellingCourses": topSelling,
	})
}
