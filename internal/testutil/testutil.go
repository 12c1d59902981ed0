// Package testutil wires an in-memory database and a Fiber app for tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deora-backend/internal/config"
	"deora-backend/internal/database"
	"deora-backend/internal/logger"
	"deora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const TestJWTSecret = "test-secret-that-is-at-least-32-characters"

// SetupTestDB opens a fresh in-memory SQLite database, migrates it and
// installs it as database.DB for the duration of the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		sqlDB.Close()
	})
	return db
}

func TestConfig() *config.Config {
	return &config.Config{
		JWT:        config.JWTConfig{Secret: TestJWTSecret, Expiry: time.Hour},
		Settlement: config.SettlementConfig{OwnerPercentage: 40},
	}
}

// NewApp returns a Fiber app with the production error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: logger.ErrorHandler(zap.NewNop())})
}

// CreateUser stores a user whose password is password.
func CreateUser(t *testing.T, db *gorm.DB, role models.UserRole, unit models.BusinessUnit, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Name:         string(role),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		BusinessUnit: unit,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

type tokenClaims struct {
	UserID       uint                `json:"user_id"`
	Email        string              `json:"email"`
	Role         models.UserRole     `json:"role"`
	BusinessUnit models.BusinessUnit `json:"business_unit"`
	jwt.RegisteredClaims
}

// Token signs a JWT for u with TestJWTSecret.
func Token(t *testing.T, u *models.User) string {
	t.Helper()
	claims := tokenClaims{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		BusinessUnit: u.BusinessUnit,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// DoRequest sends body as JSON and returns the raw response.
func DoRequest(t *testing.T, app *fiber.App, method, path string, body any, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// ParseResponse decodes a JSON response into v.
func ParseResponse(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
}

// ExpectStatus fails the test when the response code differs.
func ExpectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d, body: %s", resp.StatusCode, want, raw)
	}
}

// Date parses a YYYY-MM-DD literal in UTC.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	Events []RecordedEvent
}

type RecordedEvent struct {
	RoutingKey string
	Payload    any
}

func (p *RecordingPublisher) Publish(_ context.Context, routingKey string, v any) error {
	p.Events = append(p.Events, RecordedEvent{RoutingKey: routingKey, Payload: v})
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func (p *RecordingPublisher) Count(routingKey string) int {
	n := 0
	for _, e := range p.Events {
		if e.RoutingKey == routingKey {
			n++
		}
	}
	return n
}
