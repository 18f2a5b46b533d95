package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"java-quest-backend/models"
	"java-quest-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret"

func newTestApp(t *testing.T) (*fiber.App, *services.UserService) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.ProgressEvent{}, &models.BadgeType{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	userService := services.NewUserService(db, testJWTSecret)
	progressService := services.NewProgressService(db)
	leaderboardService := services.NewLeaderboardService(db, nil)
	badgeService := services.NewBadgeService(db)

	if err := badgeService.SeedCatalog(context.Background()); err != nil {
		t.Fatalf("Failed to seed badge catalog: %v", err)
	}

	app := fiber.New()
	SetupAuthRoutes(app, userService)
	SetupGamificationRoutes(app, progressService, leaderboardService, badgeService, []byte(testJWTSecret))

	return app, userService
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Failed to decode response %q: %v", raw, err)
		}
	} else {
		decoded["_raw"] = string(raw)
	}
	return resp, decoded
}

func registerTestUser(t *testing.T, app *fiber.App, name, email string) string {
	t.Helper()

	resp, body := doJSON(t, app, "POST", "/auth/register", map[string]interface{}{
		"name":     name,
		"email":    email,
		"password": "password123",
	}, "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Register returned %d: %v", resp.StatusCode, body)
	}
	user := body["user"].(map[string]interface{})
	return user["id"].(string)
}

func TestProgressEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	userID := registerTestUser(t, app, "Test Gamer", "gamer@example.com")

	t.Run("successful update", func(t *testing.T) {
		resp, body := doJSON(t, app, "POST", "/progress", map[string]interface{}{
			"userId":       userID,
			"xpGained":     150,
			"badgesEarned": []string{"First Win"},
		}, "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, body)
		}
		if body["xp"].(float64) != 150 || body["level"].(float64) != 1 || body["totalSolved"].(float64) != 1 {
			t.Errorf("Unexpected progress payload: %v", body)
		}
		badges := body["badges"].([]interface{})
		if len(badges) != 1 || badges[0] != "First Win" {
			t.Errorf("Unexpected badges: %v", badges)
		}
		if _, leaked := body["email"]; leaked {
			t.Error("Progress response leaks email")
		}
	})

	t.Run("level up across threshold", func(t *testing.T) {
		resp, body := doJSON(t, app, "POST", "/progress", map[string]interface{}{
			"userId":       userID,
			"xpGained":     900,
			"badgesEarned": []string{"First Win", "Second Win"},
		}, "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, body)
		}
		if body["xp"].(float64) != 1050 || body["level"].(float64) != 2 || body["totalSolved"].(float64) != 2 {
			t.Errorf("Unexpected progress payload: %v", body)
		}
		if len(body["badges"].([]interface{})) != 2 {
			t.Errorf("Unexpected badges: %v", body["badges"])
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/progress", map[string]interface{}{
			"userId":   "nonexistent",
			"xpGained": 10,
		}, "")
		if resp.StatusCode != fiber.StatusNotFound {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("negative xp rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/progress", map[string]interface{}{
			"userId":   userID,
			"xpGained": -10,
		}, "")
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("missing user id rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/progress", map[string]interface{}{
			"xpGained": 10,
		}, "")
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		email := string(rune('a'+i)) + "@example.com"
		ids = append(ids, registerTestUser(t, app, "Player", email))
	}
	for i, id := range ids {
		resp, body := doJSON(t, app, "POST", "/progress", map[string]interface{}{
			"userId":   id,
			"xpGained": (i + 1) * 100,
		}, "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Seeding progress failed: %d %v", resp.StatusCode, body)
		}
	}

	req := httptest.NewRequest("GET", "/leaderboard", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET /leaderboard failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var rows []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("Failed to decode leaderboard: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("Expected 10 rows, got %d", len(rows))
	}
	if rows[0]["xp"].(float64) != 1200 {
		t.Errorf("Top xp = %v, want 1200", rows[0]["xp"])
	}
	for i := 1; i < len(rows); i++ {
		if rows[i]["xp"].(float64) > rows[i-1]["xp"].(float64) {
			t.Errorf("Ordering broken at row %d", i)
		}
	}
	for _, row := range rows {
		for _, forbidden := range []string{"email", "totalSolved", "id"} {
			if _, ok := row[forbidden]; ok {
				t.Errorf("Leaderboard row leaks %q", forbidden)
			}
		}
	}
}

func TestRankEndpointWithoutRedis(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/rank/some-user", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET /rank failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestBadgesEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/badges", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET /badges failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var catalog []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		t.Fatalf("Failed to decode catalog: %v", err)
	}
	if len(catalog) == 0 {
		t.Fatal("Expected seeded badge catalog")
	}
}
