package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"clinic-appointments-api/internal/config"
	"clinic-appointments-api/internal/handler"
	"clinic-appointments-api/internal/middleware"
	"clinic-appointments-api/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newRouter(st *store.Store) http.Handler {
	h := handler.New(st, testConfig())
	return h.Routes(middleware.NewRateLimiter(1000, 1000))
}

// setup returns a router backed by a real database, skipping when none is
// configured.
func setup(t *testing.T) http.Handler {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)
	if migration, err := os.ReadFile("../../db/migrations/001_init.sql"); err == nil {
		_, _ = pool.Exec(context.Background(), string(migration))
	}
	return newRouter(store.New(pool))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func registerUser(t *testing.T, router http.Handler, role string) (id int64, email string) {
	t.Helper()
	email = fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8])
	rec, body := doJSON(t, router, "POST", "/users", map[string]string{
		"name": "Test " + role, "email": email, "secret": "s1", "role": role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	user, _ := body["user"].(map[string]any)
	uid, _ := user["id"].(float64)
	if uid == 0 {
		t.Fatalf("register: no id in response: %s", rec.Body.String())
	}
	return int64(uid), email
}

func bookAppointment(t *testing.T, router http.Handler, providerID, patientID int64, date, hhmm string) int64 {
	t.Helper()
	rec, body := doJSON(t, router, "POST", "/appointments", map[string]any{
		"providerId": providerID, "patientId": patientID,
		"date": date, "time": hhmm, "reason": "checkup",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	apt, _ := body["appointment"].(map[string]any)
	id, _ := apt["id"].(float64)
	if id == 0 {
		t.Fatalf("book: no id in response: %s", rec.Body.String())
	}
	if apt["status"] != "active" {
		t.Fatalf("book: expected active status, got %v", apt["status"])
	}
	return int64(id)
}

// ----- validation (no database required) -----

func TestBookAppointmentValidation(t *testing.T) {
	router := newRouter(store.New(nil))

	valid := map[string]any{
		"providerId": 2, "patientId": 1,
		"date": "2024-05-01", "time": "10:00", "reason": "checkup",
	}
	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing providerId", func(m map[string]any) { delete(m, "providerId") }},
		{"missing patientId", func(m map[string]any) { delete(m, "patientId") }},
		{"missing date", func(m map[string]any) { delete(m, "date") }},
		{"missing time", func(m map[string]any) { delete(m, "time") }},
		{"missing reason", func(m map[string]any) { delete(m, "reason") }},
		{"bad date format", func(m map[string]any) { m["date"] = "05/01/2024" }},
		{"bad time format", func(m map[string]any) { m["time"] = "10am" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := map[string]any{}
			for k, v := range valid {
				req[k] = v
			}
			tt.mutate(req)
			rec, _ := doJSON(t, router, "POST", "/appointments", req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	router := newRouter(store.New(nil))

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.com", "secret": "s1", "role": "patient"}},
		{"missing email", map[string]string{"name": "A", "secret": "s1", "role": "patient"}},
		{"missing secret", map[string]string{"name": "A", "email": "a@b.com", "role": "patient"}},
		{"missing role", map[string]string{"name": "A", "email": "a@b.com", "secret": "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, router, "POST", "/users", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	router := newRouter(store.New(nil))

	rec, _ := doJSON(t, router, "POST", "/login", map[string]string{"email": "a@b.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing secret, got %d", rec.Code)
	}
	rec, _ = doJSON(t, router, "POST", "/login", map[string]string{"secret": "s1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing email, got %d", rec.Code)
	}
}

func TestMalformedIDs(t *testing.T) {
	router := newRouter(store.New(nil))

	rec, _ := doJSON(t, router, "PUT", "/appointments/abc/cancel", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cancel: expected 400 for non-numeric id, got %d", rec.Code)
	}

	rec, _ = doJSON(t, router, "GET", "/appointments/by-patient/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("query: expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestLogoutRequiresToken(t *testing.T) {
	router := newRouter(store.New(nil))

	rec, _ := doJSON(t, router, "POST", "/auth/logout", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without bearer token, got %d", rec.Code)
	}
}

// ----- integration (database required) -----

func TestBookingLifecycleScenario(t *testing.T) {
	router := setup(t)

	patientID, _ := registerUser(t, router, "patient")
	providerID, _ := registerUser(t, router, "provider")

	aptID := bookAppointment(t, router, providerID, patientID, "2024-05-01", "10:00")

	// listed while active
	rec, _ := doJSON(t, router, "GET", fmt.Sprintf("/appointments/by-patient/%d", patientID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// cancel succeeds once
	rec, _ = doJSON(t, router, "PUT", fmt.Sprintf("/appointments/%d/cancel", aptID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// second cancel is a 404, indistinguishable from a missing id
	rec, _ = doJSON(t, router, "PUT", fmt.Sprintf("/appointments/%d/cancel", aptID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second cancel: expected 404, got %d", rec.Code)
	}

	// no active appointments remain: the query reports 404, not an empty list
	rec, _ = doJSON(t, router, "GET", fmt.Sprintf("/appointments/by-patient/%d", patientID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("query after cancel: expected 404, got %d", rec.Code)
	}
}

func TestBookUnknownParticipants(t *testing.T) {
	router := setup(t)

	patientID, _ := registerUser(t, router, "patient")

	rec, _ := doJSON(t, router, "POST", "/appointments", map[string]any{
		"providerId": 999999999, "patientId": patientID,
		"date": "2024-05-01", "time": "10:00", "reason": "checkup",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown provider, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterIssuesTokens(t *testing.T) {
	router := setup(t)

	email := fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8])
	rec, body := doJSON(t, router, "POST", "/users", map[string]string{
		"name": "Test Patient", "email": email, "secret": "s1", "role": "patient",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	access, _ := body["accessToken"].(string)
	refresh, _ := body["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("register response missing tokens: %s", rec.Body.String())
	}

	// the refresh token works without an intervening login
	rec, body = doJSON(t, router, "POST", "/auth/refresh", map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rotated, _ := body["refreshToken"].(string); rotated == "" || rotated == refresh {
		t.Error("refresh should issue a new token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := setup(t)

	_, email := registerUser(t, router, "patient")

	rec, _ := doJSON(t, router, "POST", "/users", map[string]string{
		"name": "Second", "email": email, "secret": "s2", "role": "patient",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	router := setup(t)

	uid, email := registerUser(t, router, "patient")

	// wrong secret and unknown email are the same 401
	rec, _ := doJSON(t, router, "POST", "/login", map[string]string{"email": email, "secret": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", rec.Code)
	}
	rec, _ = doJSON(t, router, "POST", "/login", map[string]string{"email": "nobody@nowhere.com", "secret": "s1"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: expected 401, got %d", rec.Code)
	}

	rec, body := doJSON(t, router, "POST", "/login", map[string]string{"email": email, "secret": "s1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user, _ := body["user"].(map[string]any)
	if got, _ := user["id"].(float64); int64(got) != uid {
		t.Errorf("profile id: got %v, want %d", user["id"], uid)
	}
	if user["email"] != email {
		t.Errorf("profile email: got %v", user["email"])
	}
	if body["accessToken"] == nil || body["refreshToken"] == nil {
		t.Error("login response missing tokens")
	}
	if _, leaked := user["secret"]; leaked {
		t.Error("profile leaks the stored secret")
	}
}

func TestListUsers(t *testing.T) {
	router := setup(t)

	_, email := registerUser(t, router, "provider")

	req := httptest.NewRequest("GET", "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var users []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, u := range users {
		if u["email"] == email {
			found = true
		}
		if _, leaked := u["secret"]; leaked {
			t.Fatal("user listing leaks secrets")
		}
	}
	if !found {
		t.Error("registered user missing from listing")
	}
}

func TestRefreshRotationAndLogout(t *testing.T) {
	router := setup(t)

	_, email := registerUser(t, router, "patient")
	rec, body := doJSON(t, router, "POST", "/login", map[string]string{"email": email, "secret": "s1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	access, _ := body["accessToken"].(string)
	refresh, _ := body["refreshToken"].(string)

	// rotate
	rec, body = doJSON(t, router, "POST", "/auth/refresh", map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rotated, _ := body["refreshToken"].(string)
	if rotated == "" || rotated == refresh {
		t.Error("refresh should issue a new token")
	}

	// the old token is now revoked
	rec, _ = doJSON(t, router, "POST", "/auth/refresh", map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused refresh token: expected 401, got %d", rec.Code)
	}

	// logout revokes the rotated token too
	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	logoutRec := httptest.NewRecorder()
	router.ServeHTTP(logoutRec, req)
	if logoutRec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", logoutRec.Code)
	}

	rec, _ = doJSON(t, router, "POST", "/auth/refresh", map[string]string{"refreshToken": rotated})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: expected 401, got %d", rec.Code)
	}
}
