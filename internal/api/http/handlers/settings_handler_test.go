package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/history-diff-service/internal/auth"
	"github.com/spec-kit/history-diff-service/internal/config"
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/service"
	apperrors "github.com/spec-kit/history-diff-service/pkg/util"
)

type memUserRepo struct {
	users map[string]*domain.User
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = "u-" + user.Email
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memConfigRepo struct {
	blobs map[string][]byte
}

func (r *memConfigRepo) Get(_ context.Context, userID string) ([]byte, error) {
	if blob, ok := r.blobs[userID]; ok {
		return blob, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memConfigRepo) Put(_ context.Context, userID string, blob []byte) error {
	r.blobs[userID] = blob
	return nil
}

func newSettingsApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	users := &memUserRepo{users: map[string]*domain.User{
		"u-1": {ID: "u-1", Name: "Alice", Email: "alice@example.com", Status: domain.UserStatusActive},
	}}
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
	authService := service.NewAuthService(cfg, users)
	token, _, err := authService.TokenManager().GenerateToken("u-1")
	if err != nil {
		t.Fatal(err)
	}

	settings := service.NewSettingsService(&memConfigRepo{blobs: make(map[string][]byte)}, zap.NewNop())
	handler := NewSettingsHandler(settings)
	middleware := auth.NewAuthMiddleware(authService.TokenManager(), users)

	app := fiber.New()
	// Same error conversion the HTTP layer applies in production.
	app.Use(func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{
				"error": fiber.Map{"code": de.Code, "message": de.Message},
			})
		}
		return nil
	})
	app.Get("/settings", middleware.Handle, handler.Get)
	app.Put("/settings", middleware.Handle, handler.Put)
	return app, token
}

func TestSettingsGetReturnsDefaults(t *testing.T) {
	app, token := newSettingsApp(t)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Data struct {
			Settings domain.UserConfig `json:"settings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Data.Settings.ConfigVersion != domain.CurrentConfigVersion {
		t.Errorf("settings = %+v, want current-version defaults", payload.Data.Settings)
	}
}

func TestSettingsPutRoundTrips(t *testing.T) {
	app, token := newSettingsApp(t)

	body := `{"fieldFilters":["Link*"],"numContextLines":5,"limitMaxTileWidth":true,"maxTileWidth":640}`
	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var payload struct {
		Data struct {
			Settings domain.UserConfig `json:"settings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	got := payload.Data.Settings
	if got.NumContextLines != 5 || !got.LimitMaxTileWidth || got.MaxTileWidth != 640 {
		t.Errorf("settings did not round-trip: %+v", got)
	}
	if len(got.FieldFilters) != 1 || got.FieldFilters[0] != "Link*" {
		t.Errorf("filters = %v", got.FieldFilters)
	}
}

func TestSettingsRequiresAuth(t *testing.T) {
	app, _ := newSettingsApp(t)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
