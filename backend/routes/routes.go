package routes

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"studynotion/backend/config"
	"studynotion/backend/controllers"
	"studynotion/backend/mail"
	"studynotion/backend/middleware"
	"studynotion/backend/payment"
	"studynotion/backend/repository"
	"studynotion/backend/services"
	"studynotion/backend/storage"
)

const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

// Deps are the collaborators shared by every controller.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Store    repository.Store
	Gateway  payment.Gateway
	Mailer   mail.Sender
	Uploader storage.Uploader
	Logger   zerolog.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	ledger := services.NewLedger(d.Store, d.Logger)
	accounts := services.NewAccountService(d.Store, d.Logger)
	tracker := services.NewProgressTracker(d.Store)
	payments := services.NewPaymentService(d.Store, ledger, d.Gateway, d.Mailer, services.PaymentOptions{
		Secret:       d.Cfg.RazorpaySecret,
		Currency:     d.Cfg.PaymentCurrency,
		DashboardURL: strings.TrimRight(d.Cfg.FrontendURL, "/") + "/dashboard/enrolled-courses",
	}, d.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "Your server is up and running"})
	})

	api := app.Group("/api")

	// Middleware
	authMiddleware := middleware.AuthMiddleware(d.Cfg)
	authLimiter := middleware.RateLimiter(authRateLimit, authRateWindow)

	// Auth routes
	authController := controllers.NewAuthController(d.DB, d.Cfg, d.Mailer)
	auth := api.Group("/auth")
	auth.Post("/sendotp", authLimiter, authController.SendOTP)
	auth.Post("/signup", authLimiter, authController.Signup)
	auth.Post("/login", authLimiter, authController.Login)
	auth.Post("/changepassword", authMiddleware, authController.ChangePassword)
	auth.Post("/reset-password-token", authController.ResetPasswordToken)
	auth.Post("/reset-password", authController.ResetPassword)

	// Profile routes
	profileController := controllers.NewProfileController(d.DB, d.Cfg, accounts, d.Uploader)
	profile := api.Group("/profile", authMiddleware)
	profile.Put("/updateProfile", profileController.UpdateProfile)
	profile.Delete("/deleteProfile", profileController.DeleteProfile)
	profile.Get("/getUserDetails", profileController.GetUserDetails)
	profile.Put("/updateDisplayPicture", profileController.UpdateDisplayPicture)
	profile.Get("/getEnrolledCourses", profileController.GetEnrolledCourses)
	profile.Get("/instructorDasboard", middleware.IsInstructor(), profileController.InstructorDashboard)

	// Payment routes
	paymentController := controllers.NewPaymentController(payments)
	pay := api.Group("/payment", authMiddleware, middleware.IsStudent())
	pay.Post("/capturePayment", paymentController.CapturePayment)
	pay.Post("/verifyPayment", paymentController.VerifyPayment)
	pay.Post("/sendPaymentSuccessEmail", paymentController.SendPaymentSuccessEmail)

	// Course routes
	coursesController := controllers.NewCoursesController(d.DB, d.Cfg, d.Uploader)
	sectionController := controllers.NewSectionController(d.DB, d.Cfg, d.Uploader)
	categoryController := controllers.NewCategoryController(d.DB)
	ratingController := controllers.NewRatingController(d.DB, d.Store)
	progressController := controllers.NewProgressController(tracker)

	course := api.Group("/course")
	instructor := []fiber.Handler{authMiddleware, middleware.IsInstructor()}
	student := []fiber.Handler{authMiddleware, middleware.IsStudent()}

	course.Post("/createCourse", with(instructor, coursesController.CreateCourse)...)
	course.Post("/editCourse", with(instructor, coursesController.EditCourse)...)
	course.Delete("/deleteCourse", with(instructor, coursesController.DeleteCourse)...)
	course.Get("/getAllCourses", coursesController.GetAllCourses)
	course.Post("/getCourseDetails", coursesController.GetCourseDetails)
	course.Post("/getFullCourseDetails", with(student, coursesController.GetFullCourseDetails)...)
	course.Get("/getInstructorCourses", with(instructor, coursesController.GetInstructorCourses)...)

	course.Post("/addSection", with(instructor, sectionController.AddSection)...)
	course.Post("/updateSection", with(instructor, sectionController.UpdateSection)...)
	course.Delete("/deleteSection", with(instructor, sectionController.DeleteSection)...)
	course.Post("/addSubSection", with(instructor, sectionController.AddSubSection)...)
	course.Post("/updateSubSection", with(instructor, sectionController.UpdateSubSection)...)
	course.Post("/deleteSubSection", with(instructor, sectionController.DeleteSubSection)...)

	course.Post("/createCategory", authMiddleware, middleware.IsAdmin(), categoryController.CreateCategory)
	course.Get("/showAllCategories", categoryController.ShowAllCategories)
	course.Post("/getCategoryPageDetails", categoryController.GetCategoryPageDetails)

	course.Post("/createRating", with(student, ratingController.CreateRating)...)
	course.Get("/getAverageRating", ratingController.GetAverageRating)
	course.Get("/getReviews", ratingController.GetReviews)

	course.Post("/updateCourseProgress", with(student, progressController.UpdateCourseProgress)...)

	// Contact routes
	contactController := controllers.NewContactController(d.Mailer)
	api.Post("/contactus/contact", contactController.Contact)
}

func with(chain []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, h)
}
