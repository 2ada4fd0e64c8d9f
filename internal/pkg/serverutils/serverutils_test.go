package serverutils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestWriteSSEEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	assert.NoError(t, WriteSSEEvent(w, "token", "hello"))
	assert.Equal(t, "event: token\ndata: hello\n\n", buf.String())
}

func TestWriteSSEEventMultiline(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	assert.NoError(t, WriteSSEEvent(w, "sources", "first\nsecond"))
	assert.Equal(t, "event: sources\ndata: first\ndata: second\n\n", buf.String())
}

func TestWriteSSEJSON(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	payload := struct {
		Text string `json:"text"`
	}{Text: "done"}

	assert.NoError(t, WriteSSEJSON(w, "final", payload))
	assert.Equal(t, "event: final\ndata: {\"text\":\"done\"}\n\n", buf.String())
}

func TestSetSSEHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/stream", func(c *fiber.Ctx) error {
		SetSSEHeaders(c)
		return nil
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/stream", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))
}

type signupPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(signupPayload{Email: "a@b.com", Password: "longenough"}))

	err := ValidateRequest(signupPayload{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Email' failed on 'required'")
	assert.Contains(t, err.Error(), "field 'Password' failed on 'required'")

	err = ValidateRequest(signupPayload{Email: "not-an-email", Password: "short"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Email' failed on 'email'")
	assert.Contains(t, err.Error(), "field 'Password' failed on 'min'")
}

func TestResponseEnvelope(t *testing.T) {
	ok := SuccessResponse("created", map[string]string{"id": "42"})
	assert.True(t, ok.Success)
	assert.Equal(t, 200, ok.Code)
	assert.Equal(t, "created", ok.Message)
	assert.Equal(t, "42", ok.Data["id"])

	fail := ErrorResponse(404, "session not found")
	assert.False(t, fail.Success)
	assert.Equal(t, 404, fail.Code)

	// Empty data stays off the wire.
	raw, err := json.Marshal(fail)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "data")
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)
	return token
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	app := fiber.New()
	app.Get("/secure", JwtMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id")})
	})

	t.Run("missing header", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/secure", nil), -1)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/secure", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		resp, err := app.Test(req, -1)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{
			"user_id": "user-123",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest("GET", "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, "unit-test-secret", jwt.MapClaims{
			"user_id": "user-123",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest("GET", "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token reaches handler", func(t *testing.T) {
		token := signToken(t, "unit-test-secret", jwt.MapClaims{
			"user_id": "user-123",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest("GET", "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		assert.NoError(t, err)
		var parsed map[string]string
		assert.NoError(t, json.Unmarshal(body, &parsed))
		assert.Equal(t, "user-123", parsed["user_id"])
	})
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	var envelope BaseResponse[any]
	assert.NoError(t, json.Unmarshal(body, &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, fiber.StatusTeapot, envelope.Code)
	assert.Equal(t, "short and stout", envelope.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
