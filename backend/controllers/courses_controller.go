package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/middleware"
	"studynotion/backend/models"
	"studynotion/backend/repository"
	"studynotion/backend/services"
	"studynotion/backend/storage"
	"studynotion/backend/utils"
)

const (
	thumbnailWidth  = 1280
	thumbnailHeight = 720
)

type CoursesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Uploader storage.Uploader
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, uploader storage.Uploader) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Uploader: uploader}
}

// CourseForm is multipart: tag and instructions arrive as JSON encoded arrays.
type CourseForm struct {
	CourseName        string `form:"courseName" validate:"required"`
	CourseDescription string `form:"courseDescription" validate:"required"`
	WhatYouWillLearn  string `form:"whatYouWillLearn" validate:"required"`
	Price             string `form:"price" validate:"required,numeric"`
	Tag               string `form:"tag" validate:"required"`
	Category          string `form:"category" validate:"required"`
	Instructions      string `form:"instructions"`
	Status            string `form:"status"`
}

// EditCourseForm carries only the fields being changed.
type EditCourseForm struct {
	CourseID          string `form:"courseId" json:"courseId" validate:"required"`
	CourseName        string `form:"courseName" json:"courseName"`
	CourseDescription string `form:"courseDescription" json:"courseDescription"`
	WhatYouWillLearn  string `form:"whatYouWillLearn" json:"whatYouWillLearn"`
	Price             string `form:"price" json:"price"`
	Tag               string `form:"tag" json:"tag"`
	Category          string `form:"category" json:"category"`
	Instructions      string `form:"instructions" json:"instructions"`
	Status            string `form:"status" json:"status"`
}

type CourseIDRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// CreateCourse godoc
// @Summary Create a course
// @Description Multipart form with a thumbnailImage file
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /course/createCourse [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var form CourseForm
	if err := utils.ParseBody(c, &form); err != nil {
		return utils.Fail(c, err)
	}
	thumbnail, err := c.FormFile("thumbnailImage")
	if err != nil {
		return utils.Fail(c, apperrors.ErrMissingFields)
	}

	price, err := strconv.ParseFloat(form.Price, 64)
	if err != nil || price < 0 {
		return utils.BadRequest(c, "Invalid price")
	}
	tags, err := parseStringList(form.Tag, "tag")
	if err != nil {
		return utils.Fail(c, err)
	}
	instructions, err := parseStringList(form.Instructions, "instructions")
	if err != nil {
		return utils.Fail(c, err)
	}
	status := models.CourseStatus(form.Status)
	if status == "" {
		status = models.StatusDraft
	}
	if !status.Valid() {
		return utils.BadRequest(c, "Invalid status")
	}

	ctx := c.UserContext()
	categoryID, err := cc.findCategory(ctx, form.Category)
	if err != nil {
		return utils.Fail(c, err)
	}

	thumbnailURL, err := storage.UploadImage(ctx, cc.Uploader, thumbnail, cc.Cfg.OSSFolder, thumbnailWidth, thumbnailHeight)
	if err != nil {
		return utils.Fail(c, err)
	}

	course := models.Course{
		CourseName:        form.CourseName,
		CourseDescription: form.CourseDescription,
		WhatYouWillLearn:  form.WhatYouWillLearn,
		Price:             price,
		Thumbnail:         thumbnailURL,
		Tag:               tags,
		Instructions:      instructions,
		Status:            status,
		InstructorID:      middleware.UserID(c),
		CategoryID:        categoryID,
	}
	if err := cc.DB.WithContext(ctx).Create(&course).Error; err != nil {
		return utils.Fail(c, err)
	}
	course.StudentsEnrolled = []uuid.UUID{}

	return utils.Success(c, fiber.StatusOK, "Course Created Successfully", course)
}

// EditCourse applies a partial update. Only the owning instructor may edit.
func (cc *CoursesController) EditCourse(c *fiber.Ctx) error {
	var form EditCourseForm
	if err := utils.ParseBody(c, &form); err != nil {
		return utils.Fail(c, err)
	}
	courseID, err := utils.ParseUUID(form.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	course, err := ownedCourse(c, cc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}

	updates := map[string]interface{}{}
	if form.CourseName != "" {
		updates["course_name"] = form.CourseName
	}
	if form.CourseDescription != "" {
		updates["course_description"] = form.CourseDescription
	}
	if form.WhatYouWillLearn != "" {
		updates["what_you_will_learn"] = form.WhatYouWillLearn
	}
	if form.Price != "" {
		price, err := strconv.ParseFloat(form.Price, 64)
		if err != nil || price < 0 {
			return utils.BadRequest(c, "Invalid price")
		}
		updates["price"] = price
	}
	if form.Tag != "" {
		tags, err := parseStringList(form.Tag, "tag")
		if err != nil {
			return utils.Fail(c, err)
		}
		updates["tag"] = tags
	}
	if form.Instructions != "" {
		instructions, err := parseStringList(form.Instructions, "instructions")
		if err != nil {
			return utils.Fail(c, err)
		}
		updates["instructions"] = instructions
	}
	if form.Status != "" {
		status := models.CourseStatus(form.Status)
		if !status.Valid() {
			return utils.BadRequest(c, "Invalid status")
		}
		updates["status"] = status
	}
	if form.Category != "" {
		categoryID, err := cc.findCategory(ctx, form.Category)
		if err != nil {
			return utils.Fail(c, err)
		}
		updates["category_id"] = categoryID
	}
	if fh, err := c.FormFile("thumbnailImage"); err == nil {
		thumbnailURL, err := storage.UploadImage(ctx, cc.Uploader, fh, cc.Cfg.OSSFolder, thumbnailWidth, thumbnailHeight)
		if err != nil {
			return utils.Fail(c, err)
		}
		updates["thumbnail"] = thumbnailURL
	}

	if len(updates) > 0 {
		if err := cc.DB.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
			return utils.Fail(c, err)
		}
	}

	updated, err := loadCourse(ctx, cc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Course updated successfully", updated)
}

// DeleteCourse removes the course with its rosters, progress, reviews and content.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	var req CourseIDRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseID, err := utils.ParseUUID(req.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	if _, err := ownedCourse(c, cc.DB, courseID); err != nil {
		return utils.Fail(c, err)
	}

	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&models.CourseProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&models.RatingAndReview{}).Error; err != nil {
			return err
		}
		sections := tx.Model(&models.Section{}).Select("id").Where("course_id = ?", courseID)
		if err := tx.Where("section_id IN (?)", sections).Delete(&models.SubSection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&models.Section{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Course{}, "id = ?", courseID).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Course deleted successfully", nil)
}

func (cc *CoursesController) GetAllCourses(c *fiber.Ctx) error {
	var courses []models.Course
	err := cc.DB.WithContext(c.UserContext()).
		Preload("Instructor").
		Preload("RatingAndReviews").
		Where("status = ?", models.StatusPublished).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := repository.FillEnrollments(c.UserContext(), cc.DB, courses); err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Data for all courses fetched successfully", courses)
}

// GetCourseDetails is public, so lecture video urls are withheld.
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	var req CourseIDRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseID, err := utils.ParseUUID(req.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}

	course, err := loadCourse(c.UserContext(), cc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	for i := range course.CourseContent {
		for j := range course.CourseContent[i].SubSections {
			course.CourseContent[i].SubSections[j].VideoURL = ""
		}
	}

	return utils.Success(c, fiber.StatusOK, "Course details fetched successfully", fiber.Map{
		"courseDetails": course,
		"totalDuration": services.CourseDuration(course),
	})
}

func (cc *CoursesController) GetFullCourseDetails(c *fiber.Ctx) error {
	var req CourseIDRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseID, err := utils.ParseUUID(req.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	course, err := loadCourse(ctx, cc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}

	completed := []string{}
	var progress models.CourseProgress
	err = cc.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", middleware.UserID(c), courseID).First(&progress).Error
	switch {
	case err == nil:
		completed = progress.CompletedVideos
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, "Course details fetched successfully", fiber.Map{
		"courseDetails":   course,
		"totalDuration":   services.CourseDuration(course),
		"completedVideos": completed,
	})
}

func (cc *CoursesController) GetInstructorCourses(c *fiber.Ctx) error {
	var courses []models.Course
	err := repository.WithContent(cc.DB.WithContext(c.UserContext())).
		Where("instructor_id = ?", middleware.UserID(c)).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := repository.FillEnrollments(c.UserContext(), cc.DB, courses); err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Instructor courses fetched successfully", courses)
}

// loadCourse loads a course with its instructor, category, reviews and ordered content.
func loadCourse(ctx context.Context, db *gorm.DB, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := repository.WithContent(db.WithContext(ctx)).
		Preload("Instructor.Profile").
		Preload("Category").
		Preload("RatingAndReviews").
		First(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	courses := []models.Course{course}
	if err := repository.FillEnrollments(ctx, db, courses); err != nil {
		return nil, err
	}
	return &courses[0], nil
}

// ownedCourse returns the course if the caller is its instructor.
func ownedCourse(c *fiber.Ctx, db *gorm.DB, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := db.WithContext(c.UserContext()).First(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if course.InstructorID != middleware.UserID(c) {
		return nil, apperrors.ErrForbidden
	}
	return &course, nil
}

func (cc *CoursesController) findCategory(ctx context.Context, raw string) (uuid.UUID, error) {
	categoryID, err := utils.ParseUUID(raw)
	if err != nil {
		return uuid.Nil, err
	}
	var count int64
	if err := cc.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return uuid.Nil, err
	}
	if count == 0 {
		return uuid.Nil, apperrors.ErrCategoryNotFound
	}
	return categoryID, nil
}

// parseStringList decodes a JSON array of strings. An empty value is an empty list.
func parseStringList(raw, field string) (pq.StringArray, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pq.StringArray{}, nil
	}
	var out []string
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Invalid "+field)
	}
	return pq.StringArray(out), nil
}
