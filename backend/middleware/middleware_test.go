package middleware

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studynotion/backend/config"
	"studynotion/backend/models"
	"studynotion/backend/utils"
)

func tokenFor(t *testing.T, cfg *config.Config, role models.Role) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(&models.User{Base: models.Base{ID: uuid.New()}, AccountType: role}, cfg)
	require.NoError(t, err)
	return token
}

func TestRoleGuards(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", JWTTTL: time.Hour}
	app := fiber.New(fiber.Config{ErrorHandler: utils.FiberErrorHandler})
	app.Get("/instructor", AuthMiddleware(cfg), IsInstructor(), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c).String())
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"no token", "", fiber.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", fiber.StatusUnauthorized},
		{"wrong role", "Bearer " + tokenFor(t, cfg, models.RoleStudent), fiber.StatusForbidden},
		{"instructor", "Bearer " + tokenFor(t, cfg, models.RoleInstructor), fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/instructor", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestLoggingMiddlewareWritesFinalStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	app := fiber.New(fiber.Config{ErrorHandler: utils.FiberErrorHandler})
	app.Use(requestid.New())
	app.Use(LoggingMiddleware(logger))
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"request_id"`)
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(TimeoutMiddleware(time.Second))
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/login", RateLimiter(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, fiber.StatusTooManyRequests}, statuses)
}
