package controllers

import (
	"github.com/gofiber/fiber/v2"

	"studynotion/backend/middleware"
	"studynotion/backend/services"
	"studynotion/backend/utils"
)

type ProgressController struct {
	Tracker *services.ProgressTracker
}

func NewProgressController(tracker *services.ProgressTracker) *ProgressController {
	return &ProgressController{Tracker: tracker}
}

type UpdateProgressRequest struct {
	CourseID     string `json:"courseId" validate:"required"`
	SubsectionID string `json:"subsectionId"`
	SubSectionID string `json:"subSectionId"`
}

// UpdateCourseProgress godoc
// @Summary Mark a lecture as completed
// @Tags progress
// @Accept json
// @Produce json
// @Param input body UpdateProgressRequest true "Course and subsection"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /course/updateCourseProgress [post]
func (pc *ProgressController) UpdateCourseProgress(c *fiber.Ctx) error {
	var req UpdateProgressRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.Fail(c, err)
	}
	// both spellings are sent by existing clients
	rawSub := req.SubsectionID
	if rawSub == "" {
		rawSub = req.SubSectionID
	}
	if rawSub == "" {
		return utils.BadRequest(c, "All fields are required")
	}

	courseID, err := utils.ParseUUID(req.CourseID)
	if err != nil {
		return utils.Fail(c, err)
	}
	subSectionID, err := utils.ParseUUID(rawSub)
	if err != nil {
		return utils.Fail(c, err)
	}

	progress, err := pc.Tracker.MarkComplete(c.UserContext(), middleware.UserID(c), courseID, subSectionID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.Success(c, fiber.StatusOK, "Course progress updated", progress)
}
