package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/models"
	"studynotion/backend/services"
	"studynotion/backend/storage"
	"studynotion/backend/utils"
)

type SectionController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Uploader storage.Uploader
}

func NewSectionController(db *gorm.DB, cfg *config.Config, uploader storage.Uploader) *SectionController {
	return &SectionController{DB: db, Cfg: cfg, Uploader: uploader}
}

type AddSectionRequest struct {
	SectionName string `json:"sectionName" validate:"required"`
	CourseID    string `json:"courseId" validate:"required"`
}

type UpdateSectionRequest struct {
	SectionName string `json:"sectionName" validate:"required"`
	SectionID   string `json:"sectionId" validate:"required"`
	CourseID    string `json:"courseId" validate:"required"`
}

type DeleteSectionRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
}

type AddSubSectionForm struct {
	SectionID    string `form:"sectionId" validate:"required"`
	Title        string `form:"title" validate:"required"`
	Description  string `form:"description" validate:"required"`
	TimeDuration string `form:"timeDuration"`
}

type UpdateSubSectionForm struct {
	SectionID    string `form:"sectionId" json:"sectionId" validate:"required"`
	SubSectionID string `form:"subSectionId" json:"subSectionId" validate:"required"`
	Title        string `form:"title" json:"title"`
	Description  string `form:"description" json:"description"`
	TimeDuration string `form:"timeDuration" json:"timeDuration"`
}

type DeleteSubSectionRequest struct {
	SubSectionID string `json:"subSectionId" validate:"required"`
	SectionID    string `json:"sectionId" validate:"required"`
}

// AddSection appends a section to a course owned by the caller.
func (sc *SectionController) AddSection(c *fiber.Ctx) error {
	var req AddSectionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	courseID, err := utils.ParseUUID(req.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	if _, err := ownedCourse(c, sc.DB, courseID); err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	var position int64
	if err := sc.DB.WithContext(ctx).Model(&models.Section{}).Where("course_id = ?", courseID).Count(&position).Error; err != nil {
		return utils.Fail(c, err)
	}
	section := models.Section{CourseID: courseID, SectionName: req.SectionName, Position: int(position)}
	if err := sc.DB.WithContext(ctx).Create(&section).Error; err != nil {
		return utils.Fail(c, err)
	}

	course, err := loadCourse(ctx, sc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Section created successfully", fiber.Map{"updatedCourse": course})
}

func (sc *SectionController) UpdateSection(c *fiber.Ctx) error {
	var req UpdateSectionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	ids, err := utils.ParseUUIDs([]string{req.SectionID, req.CourseID})
	if err != nil {
		return utils.Fail(c, err)
	}
	sectionID, courseID := ids[0], ids[1]
	if _, err := ownedCourse(c, sc.DB, courseID); err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	res := sc.DB.WithContext(ctx).Model(&models.Section{}).
		Where("id = ? AND course_id = ?", sectionID, courseID).
		Update("section_name", req.SectionName)
	if res.Error != nil {
		return utils.Fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.Fail(c, apperrors.ErrSectionNotFound)
	}

	course, err := loadCourse(ctx, sc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Section updated successfully", course)
}

// DeleteSection removes the section together with its subsections.
func (sc *SectionController) DeleteSection(c *fiber.Ctx) error {
	var req DeleteSectionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	ids, err := utils.ParseUUIDs([]string{req.SectionID, req.CourseID})
	if err != nil {
		return utils.Fail(c, err)
	}
	sectionID, courseID := ids[0], ids[1]
	if _, err := ownedCourse(c, sc.DB, courseID); err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	err = sc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND course_id = ?", sectionID, courseID).Delete(&models.Section{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrSectionNotFound
		}
		return tx.Where("section_id = ?", sectionID).Delete(&models.SubSection{}).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	course, err := loadCourse(ctx, sc.DB, courseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Section deleted", course)
}

// AddSubSection uploads the multipart video and appends the lecture to the section.
func (sc *SectionController) AddSubSection(c *fiber.Ctx) error {
	var form AddSubSectionForm
	if err := utils.ParseBody(c, &form); err != nil {
		return utils.Fail(c, err)
	}
	video, err := c.FormFile("video")
	if err != nil {
		return utils.Fail(c, apperrors.ErrMissingFields)
	}
	sectionID, err := utils.ParseUUID(form.SectionID)
	if err != nil {
		return utils.Fail(c, err)
	}
	if _, err := sc.ownedSection(c, sectionID); err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	videoURL, err := storage.UploadFile(ctx, sc.Uploader, video, sc.Cfg.OSSFolder)
	if err != nil {
		return utils.Fail(c, err)
	}

	var position int64
	if err := sc.DB.WithContext(ctx).Model(&models.SubSection{}).Where("section_id = ?", sectionID).Count(&position).Error; err != nil {
		return utils.Fail(c, err)
	}
	sub := models.SubSection{
		SectionID:    sectionID,
		Title:        form.Title,
		Description:  form.Description,
		TimeDuration: durationField(form.TimeDuration),
		VideoURL:     videoURL,
		Position:     int(position),
	}
	if err := sc.DB.WithContext(ctx).Create(&sub).Error; err != nil {
		return utils.Fail(c, err)
	}

	section, err := sc.loadSection(c, sectionID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "SubSection created successfully", section)
}

func (sc *SectionController) UpdateSubSection(c *fiber.Ctx) error {
	var form UpdateSubSectionForm
	if err := utils.ParseBody(c, &form); err != nil {
		return utils.Fail(c, err)
	}
	ids, err := utils.ParseUUIDs([]string{form.SectionID, form.SubSectionID})
	if err != nil {
		return utils.Fail(c, err)
	}
	sectionID, subSectionID := ids[0], ids[1]
	if _, err := sc.ownedSection(c, sectionID); err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	var sub models.SubSection
	err = sc.DB.WithContext(ctx).First(&sub, "id = ? AND section_id = ?", subSectionID, sectionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, apperrors.ErrSubSectionNotFound)
	}
	if err != nil {
		return utils.Fail(c, err)
	}

	updates := map[string]interface{}{}
	if form.Title != "" {
		updates["title"] = form.Title
	}
	if form.Description != "" {
		updates["description"] = form.Description
	}
	if form.TimeDuration != "" {
		updates["time_duration"] = durationField(form.TimeDuration)
	}
	if fh, err := c.FormFile("video"); err == nil {
		videoURL, err := storage.UploadFile(ctx, sc.Uploader, fh, sc.Cfg.OSSFolder)
		if err != nil {
			return utils.Fail(c, err)
		}
		updates["video_url"] = videoURL
	}
	if len(updates) > 0 {
		if err := sc.DB.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
			return utils.Fail(c, err)
		}
	}

	section, err := sc.loadSection(c, sectionID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Section updated successfully", section)
}

func (sc *SectionController) DeleteSubSection(c *fiber.Ctx) error {
	var req DeleteSubSectionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	ids, err := utils.ParseUUIDs([]string{req.SectionID, req.SubSectionID})
	if err != nil {
		return utils.Fail(c, err)
	}
	sectionID, subSectionID := ids[0], ids[1]
	if _, err := sc.ownedSection(c, sectionID); err != nil {
		return utils.Fail(c, err)
	}

	res := sc.DB.WithContext(c.UserContext()).Where("id = ? AND section_id = ?", subSectionID, sectionID).Delete(&models.SubSection{})
	if res.Error != nil {
		return utils.Fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.Fail(c, apperrors.ErrSubSectionNotFound)
	}

	section, err := sc.loadSection(c, sectionID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "SubSection deleted successfully", section)
}

// ownedSection checks that the section belongs to a course of the caller.
func (sc *SectionController) ownedSection(c *fiber.Ctx, sectionID uuid.UUID) (*models.Section, error) {
	var section models.Section
	err := sc.DB.WithContext(c.UserContext()).First(&section, "id = ?", sectionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrSectionNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := ownedCourse(c, sc.DB, section.CourseID); err != nil {
		return nil, err
	}
	return &section, nil
}

func (sc *SectionController) loadSection(c *fiber.Ctx, sectionID uuid.UUID) (*models.Section, error) {
	var section models.Section
	err := sc.DB.WithContext(c.UserContext()).
		Preload("SubSections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sub_sections.position ASC, sub_sections.created_at ASC")
		}).
		First(&section, "id = ?", sectionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrSectionNotFound
	}
	return &section, err
}

// durationField stores the submitted length as whole seconds.
func durationField(raw string) string {
	return strconv.FormatInt(services.ParseSeconds(raw), 10)
}
