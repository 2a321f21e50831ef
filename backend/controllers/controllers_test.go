package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/controllers"
	"studynotion/backend/models"
	"studynotion/backend/payment"
	"studynotion/backend/repository"
	"studynotion/backend/routes"
	"studynotion/backend/utils"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent map[string]int
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string]int{}
	}
	m.sent[to]++
	return nil
}

type stubGateway struct{}

func (stubGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*payment.Order, error) {
	return &payment.Order{ID: "order_" + receipt, Amount: amount, Currency: currency, Receipt: receipt, Notes: notes}, nil
}

func (stubGateway) FetchOrder(ctx context.Context, orderID string) (*payment.Order, error) {
	return nil, apperrors.ErrOrderLookup
}

type memoryUploader struct{}

func (memoryUploader) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "https://cdn.test/" + key, err
}

type suite struct {
	app    *fiber.App
	db     *gorm.DB
	cfg    *config.Config
	mailer *recordingMailer
}

// newSuite needs a disposable PostgreSQL database; every table is truncated.
func newSuite(t *testing.T) *suite {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := utils.OpenDB(dsn, 5, 2, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	require.NoError(t, db.Exec(`TRUNCATE users, profiles, otps, categories, courses, sections, sub_sections,
		course_enrollments, rating_and_reviews, course_progresses CASCADE`).Error)
	t.Cleanup(func() { _ = utils.CloseDB(db) })

	s := &suite{
		db: db,
		cfg: &config.Config{
			JWTSecret:       "test-secret",
			JWTTTL:          time.Hour,
			RazorpaySecret:  "rzp_secret",
			PaymentCurrency: "INR",
			FrontendURL:     "http://localhost:3000",
			OSSFolder:       "test",
		},
		mailer: &recordingMailer{},
	}
	s.app = fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: utils.FiberErrorHandler,
	})
	routes.SetupRoutes(s.app, routes.Deps{
		DB:       db,
		Cfg:      s.cfg,
		Store:    repository.NewGormStore(db),
		Gateway:  stubGateway{},
		Mailer:   s.mailer,
		Uploader: memoryUploader{},
		Logger:   zerolog.Nop(),
	})
	return s
}

func (s *suite) send(t *testing.T, req *http.Request, token string) (int, map[string]interface{}) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (s *suite) json(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.send(t, req, token)
}

func (s *suite) multipart(t *testing.T, path, token string, fields map[string]string, fileField, fileName string, file []byte) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(t, req, token)
}

// seedUser inserts a user directly and returns a signed token for it.
func (s *suite) seedUser(t *testing.T, role models.Role, email string) (models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		FirstName:   "Test",
		LastName:    string(role),
		Email:       email,
		Password:    string(hash),
		AccountType: role,
		Active:      true,
		Approved:    true,
		Profile:     &models.Profile{},
	}
	require.NoError(t, s.db.Create(&user).Error)
	token, err := utils.GenerateJWTToken(&user, s.cfg)
	require.NoError(t, err)
	return user, token
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 18))
	for x := 0; x < 32; x++ {
		img.Set(x, x%18, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := controllers.GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, otp)
	}
}

func TestSignupAndLogin(t *testing.T) {
	s := newSuite(t)
	email := "new.student@example.com"

	status, body := s.json(t, http.MethodPost, "/api/auth/sendotp", "", fiber.Map{"email": email})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, 1, s.mailer.sent[email])

	var otp models.OTP
	require.NoError(t, s.db.Where("email = ?", email).First(&otp).Error)

	signup := fiber.Map{
		"firstName":       "New",
		"lastName":        "Student",
		"email":           email,
		"password":        "secret123",
		"confirmPassword": "secret123",
		"accountType":     "Student",
		"otp":             "000000x",
	}
	status, body = s.json(t, http.MethodPost, "/api/auth/signup", "", signup)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "The OTP is not valid", body["message"])

	signup["otp"] = otp.Code
	status, body = s.json(t, http.MethodPost, "/api/auth/signup", "", signup)
	require.Equal(t, fiber.StatusOK, status, body)
	created := body["data"].(map[string]interface{})
	assert.Contains(t, created["image"], "api.dicebear.com")
	assert.Equal(t, true, created["approved"])

	status, _ = s.json(t, http.MethodPost, "/api/auth/sendotp", "", fiber.Map{"email": email})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.json(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = s.json(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": "secret123"})
	require.Equal(t, fiber.StatusOK, status, body)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/api/profile/getUserDetails", nil)
	status, body = s.send(t, req, token)
	require.Equal(t, fiber.StatusOK, status, body)
	user := body["data"].(map[string]interface{})
	assert.Equal(t, email, user["email"])
	assert.NotNil(t, user["additionalDetails"])
}

func TestInstructorSignupNeedsApproval(t *testing.T) {
	s := newSuite(t)
	email := "instructor@example.com"
	require.NoError(t, s.db.Create(&models.OTP{Email: email, Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}).Error)

	status, body := s.json(t, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"firstName":       "Tea",
		"lastName":        "Cher",
		"email":           email,
		"password":        "secret123",
		"confirmPassword": "secret123",
		"accountType":     "Instructor",
		"otp":             "123456",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, false, body["data"].(map[string]interface{})["approved"])
}

func TestPasswordReset(t *testing.T) {
	s := newSuite(t)
	user, _ := s.seedUser(t, models.RoleStudent, "forgetful@example.com")

	status, _ := s.json(t, http.MethodPost, "/api/auth/reset-password-token", "", fiber.Map{"email": user.Email})
	require.Equal(t, fiber.StatusOK, status)

	var stored models.User
	require.NoError(t, s.db.First(&stored, "id = ?", user.ID).Error)
	require.NotEmpty(t, stored.ResetToken)

	status, body := s.json(t, http.MethodPost, "/api/auth/reset-password", "", fiber.Map{
		"password": "fresh-pass", "confirmPassword": "fresh-pass", "token": "nope",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Token is Invalid", body["message"])

	status, _ = s.json(t, http.MethodPost, "/api/auth/reset-password", "", fiber.Map{
		"password": "fresh-pass", "confirmPassword": "fresh-pass", "token": stored.ResetToken,
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.json(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": user.Email, "password": "fresh-pass"})
	assert.Equal(t, fiber.StatusOK, status)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, s.db.Model(&stored).Updates(map[string]interface{}{"reset_token": "stale", "reset_token_expires": past}).Error)
	status, _ = s.json(t, http.MethodPost, "/api/auth/reset-password", "", fiber.Map{
		"password": "x", "confirmPassword": "x", "token": "stale",
	})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCourseLifecycle(t *testing.T) {
	s := newSuite(t)
	_, adminToken := s.seedUser(t, models.RoleAdmin, "admin@example.com")
	instructor, instructorToken := s.seedUser(t, models.RoleInstructor, "instructor@example.com")
	student, studentToken := s.seedUser(t, models.RoleStudent, "student@example.com")

	status, body := s.json(t, http.MethodPost, "/api/course/createCategory", adminToken, fiber.Map{"name": "Web Development"})
	require.Equal(t, fiber.StatusOK, status, body)
	categoryID := body["data"].(map[string]interface{})["id"].(string)

	status, _ = s.json(t, http.MethodPost, "/api/course/createCategory", adminToken, fiber.Map{"name": "Web Development"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.json(t, http.MethodPost, "/api/course/createCategory", instructorToken, fiber.Map{"name": "Other"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.multipart(t, "/api/course/createCourse", instructorToken, map[string]string{
		"courseName":        "Fiber from scratch",
		"courseDescription": "Build APIs",
		"whatYouWillLearn":  "Routing",
		"price":             "499",
		"tag":               `["go","web"]`,
		"instructions":      `["bring a laptop"]`,
		"category":          categoryID,
		"status":            "Published",
	}, "thumbnailImage", "thumb.png", pngBytes(t))
	require.Equal(t, fiber.StatusOK, status, body)
	course := body["data"].(map[string]interface{})
	courseID := course["id"].(string)
	assert.Equal(t, []interface{}{"go", "web"}, course["tag"])
	assert.Equal(t, instructor.ID.String(), course["instructorId"])

	status, body = s.json(t, http.MethodPost, "/api/course/addSection", instructorToken, fiber.Map{
		"sectionName": "Getting started", "courseId": courseID,
	})
	require.Equal(t, fiber.StatusOK, status, body)
	content := body["updatedCourse"].(map[string]interface{})["courseContent"].([]interface{})
	require.Len(t, content, 1)
	sectionID := content[0].(map[string]interface{})["id"].(string)

	for _, seconds := range []string{"120", "180"} {
		status, body = s.multipart(t, "/api/course/addSubSection", instructorToken, map[string]string{
			"sectionId":    sectionID,
			"title":        "Lecture " + seconds,
			"description":  "Video",
			"timeDuration": seconds,
		}, "video", "lecture.mp4", []byte("not really a video"))
		require.Equal(t, fiber.StatusOK, status, body)
	}

	status, body = s.json(t, http.MethodPost, "/api/course/getCourseDetails", "", fiber.Map{"courseId": courseID})
	require.Equal(t, fiber.StatusOK, status, body)
	details := body["data"].(map[string]interface{})
	assert.Equal(t, "5 minutes", details["totalDuration"])
	sections := details["courseDetails"].(map[string]interface{})["courseContent"].([]interface{})
	subs := sections[0].(map[string]interface{})["subSection"].([]interface{})
	require.Len(t, subs, 2)
	assert.Equal(t, "", subs[0].(map[string]interface{})["videoUrl"])
	subID := subs[0].(map[string]interface{})["id"].(string)

	// a different instructor may not touch the course
	_, otherToken := s.seedUser(t, models.RoleInstructor, "other@example.com")
	status, _ = s.json(t, http.MethodPost, "/api/course/updateSection", otherToken, fiber.Map{
		"sectionName": "Hijacked", "sectionId": sectionID, "courseId": courseID,
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.json(t, http.MethodPost, "/api/course/createRating", studentToken, fiber.Map{
		"rating": 4, "review": "Solid", "courseId": courseID,
	})
	assert.Equal(t, fiber.StatusNotFound, status, body)

	store := repository.NewGormStore(s.db)
	require.NoError(t, store.Enroll(context.Background(), student.ID, uuid.MustParse(courseID)))

	status, body = s.json(t, http.MethodPost, "/api/course/createRating", studentToken, fiber.Map{
		"rating": 4, "review": "Solid", "courseId": courseID,
	})
	require.Equal(t, fiber.StatusOK, status, body)
	status, _ = s.json(t, http.MethodPost, "/api/course/createRating", studentToken, fiber.Map{
		"rating": 5, "review": "Again", "courseId": courseID,
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.send(t, httptest.NewRequest(http.MethodGet, "/api/course/getAverageRating?courseId="+courseID, nil), "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, 4.0, body["averageRating"])

	status, body = s.json(t, http.MethodPost, "/api/course/updateCourseProgress", studentToken, fiber.Map{
		"courseId": courseID, "subsectionId": subID,
	})
	require.Equal(t, fiber.StatusOK, status, body)
	status, _ = s.json(t, http.MethodPost, "/api/course/updateCourseProgress", studentToken, fiber.Map{
		"courseId": courseID, "subsectionId": subID,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.json(t, http.MethodPost, "/api/course/getFullCourseDetails", studentToken, fiber.Map{"courseId": courseID})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, []interface{}{subID}, body["data"].(map[string]interface{})["completedVideos"])

	status, body = s.json(t, http.MethodPost, "/api/course/getCategoryPageDetails", "", fiber.Map{"categoryId": categoryID})
	require.Equal(t, fiber.StatusOK, status, body)
	top := body["data"].(map[string]interface{})["mostSellingCourses"].([]interface{})
	require.NotEmpty(t, top)
	assert.Equal(t, courseID, top[0].(map[string]interface{})["id"])

	req := httptest.NewRequest(http.MethodDelete, "/api/course/deleteCourse", bytes.NewReader([]byte(`{"courseId":"`+courseID+`"}`)))
	req.Header.Set("Content-Type", "application/json")
	status, body = s.send(t, req, instructorToken)
	require.Equal(t, fiber.StatusOK, status, body)

	var remaining int64
	require.NoError(t, s.db.Model(&models.Enrollment{}).Where("course_id = ?", courseID).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, s.db.Model(&models.SubSection{}).Where("section_id = ?", sectionID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestGormStoreEnrollmentIsSymmetric(t *testing.T) {
	s := newSuite(t)
	student, _ := s.seedUser(t, models.RoleStudent, "sym@example.com")
	instructor, _ := s.seedUser(t, models.RoleInstructor, "sym-instructor@example.com")
	category := models.Category{Name: "Symmetry"}
	require.NoError(t, s.db.Create(&category).Error)
	course := models.Course{CourseName: "Symmetry", Price: 10, InstructorID: instructor.ID, CategoryID: category.ID, Status: models.StatusPublished}
	require.NoError(t, s.db.Create(&course).Error)

	ctx := context.Background()
	store := repository.NewGormStore(s.db)
	require.NoError(t, store.Enroll(ctx, student.ID, course.ID))
	assert.ErrorIs(t, store.Enroll(ctx, student.ID, course.ID), apperrors.ErrAlreadyEnrolled)

	user, err := store.FindUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{course.ID}, user.Courses)
	found, err := store.FindCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{student.ID}, found.StudentsEnrolled)

	require.NoError(t, store.Unenroll(ctx, student.ID, course.ID))
	ids, err := store.EnrolledCourseIDs(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGormStorePurgeUserRemovesEverything(t *testing.T) {
	s := newSuite(t)
	student, _ := s.seedUser(t, models.RoleStudent, "purge@example.com")
	instructor, _ := s.seedUser(t, models.RoleInstructor, "purge-instructor@example.com")
	category := models.Category{Name: "Purge"}
	require.NoError(t, s.db.Create(&category).Error)
	course := models.Course{CourseName: "Purge", Price: 10, InstructorID: instructor.ID, CategoryID: category.ID, Status: models.StatusPublished}
	require.NoError(t, s.db.Create(&course).Error)

	ctx := context.Background()
	store := repository.NewGormStore(s.db)
	require.NoError(t, store.Enroll(ctx, student.ID, course.ID))
	orphan := uuid.New()
	require.NoError(t, s.db.Create(&models.Enrollment{UserID: student.ID, CourseID: orphan}).Error)
	require.NoError(t, s.db.Create(&models.RatingAndReview{UserID: student.ID, CourseID: course.ID, Rating: 4, Review: "ok"}).Error)

	orphaned, err := store.PurgeUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{orphan}, orphaned)

	for _, model := range []interface{}{&models.Enrollment{}, &models.CourseProgress{}, &models.RatingAndReview{}, &models.Profile{}} {
		var count int64
		require.NoError(t, s.db.Model(model).Where("user_id = ?", student.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
	_, err = store.FindUser(ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = store.PurgeUser(ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
