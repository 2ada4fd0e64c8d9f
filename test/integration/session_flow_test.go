package integration

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-docchat-be/internal/bootstrap"
	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/pkg/serverutils"
	"ai-docchat-be/internal/server"
	"ai-docchat-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// Exercises the session lifecycle over HTTP: create, list, delete, and the
// ownership guard between two accounts.
func TestSessionFlow(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		t.Logf("Warning: Could not load ../../.env: %v", err)
	}
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	container := bootstrap.NewContainer(db, cfg)
	srv := server.New(cfg, container)
	app := srv.GetApp()

	pass := "integration-pass-1"
	hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	hashStr := string(hash)
	now := time.Now()

	ownerId := uuid.New()
	ownerEmail := "owner-" + ownerId.String() + "@example.com"
	otherId := uuid.New()
	otherEmail := "other-" + otherId.String() + "@example.com"

	for _, u := range []model.User{
		{Id: ownerId, Email: ownerEmail, FullName: "Session Owner", PasswordHash: &hashStr, Status: "active", EmailVerified: true, EmailVerifiedAt: &now},
		{Id: otherId, Email: otherEmail, FullName: "Other User", PasswordHash: &hashStr, Status: "active", EmailVerified: true, EmailVerifiedAt: &now},
	} {
		db.Create(&u)
	}

	defer func() {
		db.Unscoped().Where("user_id IN ?", []uuid.UUID{ownerId, otherId}).Delete(&model.ChatSession{})
		db.Unscoped().Delete(&model.User{}, ownerId)
		db.Unscoped().Delete(&model.User{}, otherId)
	}()

	login := func(t *testing.T, email string) string {
		body, _ := json.Marshal(dto.LoginRequest{Email: email, Password: pass})
		req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.LoginResponse]
		json.NewDecoder(resp.Body).Decode(&result)
		assert.NotEmpty(t, result.Data.AccessToken)
		return result.Data.AccessToken
	}

	ownerToken := login(t, ownerEmail)
	otherToken := login(t, otherEmail)

	var sessionId uuid.UUID

	t.Run("Create session", func(t *testing.T) {
		body, _ := json.Marshal(dto.CreateSessionRequest{Title: "Integration CRUD Session"})
		req := httptest.NewRequest("POST", "/api/chat/v1/session", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+ownerToken)

		resp, _ := app.Test(req, -1)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var result serverutils.BaseResponse[dto.CreateSessionResponse]
		json.NewDecoder(resp.Body).Decode(&result)
		assert.True(t, result.Success)
		assert.NotEqual(t, uuid.Nil, result.Data.Id)
		sessionId = result.Data.Id
	})

	t.Run("List sessions contains the new one", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/chat/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+ownerToken)

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[[]dto.GetAllSessionsResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		found := false
		for _, s := range result.Data {
			if s.Id == sessionId {
				found = true
				assert.Equal(t, "Integration CRUD Session", s.Title)
			}
		}
		assert.True(t, found, "created session missing from list")
	})

	t.Run("Another user cannot read its history", func(t *testing.T) {
		req := httptest.NewRequest("GET", fmt.Sprintf("/api/chat/v1/session/%s/history", sessionId), nil)
		req.Header.Set("Authorization", "Bearer "+otherToken)

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("Another user cannot delete it", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/chat/v1/session/%s", sessionId), nil)
		req.Header.Set("Authorization", "Bearer "+otherToken)

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 404, resp.StatusCode)

		// Still visible to the owner
		check := httptest.NewRequest("GET", "/api/chat/v1/sessions", nil)
		check.Header.Set("Authorization", "Bearer "+ownerToken)
		checkResp, _ := app.Test(check, -1)

		var result serverutils.BaseResponse[[]dto.GetAllSessionsResponse]
		json.NewDecoder(checkResp.Body).Decode(&result)
		found := false
		for _, s := range result.Data {
			if s.Id == sessionId {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("Owner deletes session", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/chat/v1/session/%s", sessionId), nil)
		req.Header.Set("Authorization", "Bearer "+ownerToken)

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 200, resp.StatusCode)

		list := httptest.NewRequest("GET", "/api/chat/v1/sessions", nil)
		list.Header.Set("Authorization", "Bearer "+ownerToken)
		listResp, _ := app.Test(list, -1)

		var result serverutils.BaseResponse[[]dto.GetAllSessionsResponse]
		json.NewDecoder(listResp.Body).Decode(&result)
		for _, s := range result.Data {
			assert.NotEqual(t, sessionId, s.Id, "deleted session still listed")
		}
	})
}
