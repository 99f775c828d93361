package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func newTestMiddleware() *Middleware {
	policy := NewDefaultPolicy([]string{"/healthz", "/readyz", "/metrics"}, nil)
	return NewMiddleware(testSecret, policy)
}

func doRequest(t *testing.T, m *Middleware, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	m := newTestMiddleware()

	driverToken, err := IssueJWT("drv-1", RoleDriver, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT driver: %v", err)
	}
	managerToken, err := IssueJWT("", RoleManager, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT manager: %v", err)
	}
	expiredToken, err := IssueJWT("drv-1", RoleDriver, testSecret, -time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT expired: %v", err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"healthz exempt", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics exempt", http.MethodGet, "/metrics", "", http.StatusOK},
		{"records without token", http.MethodGet, "/api/records", "", http.StatusUnauthorized},
		{"records with driver token", http.MethodGet, "/api/records", driverToken, http.StatusOK},
		{"records with manager token", http.MethodGet, "/api/records", managerToken, http.StatusOK},
		{"expired token rejected", http.MethodGet, "/api/records", expiredToken, http.StatusUnauthorized},
		{"garbage token rejected", http.MethodGet, "/api/records", "not.a.jwt", http.StatusUnauthorized},
		{"drivers cannot list drivers", http.MethodGet, "/api/drivers", driverToken, http.StatusForbidden},
		{"managers can list drivers", http.MethodGet, "/api/drivers", managerToken, http.StatusOK},
		{"statement create as driver", http.MethodPost, "/api/statements", driverToken, http.StatusOK},
		{"statement download as driver", http.MethodGet, "/api/statements/s1/download", driverToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, m, tt.method, tt.path, tt.token)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	m := NewMiddleware(nil, NewDefaultPolicy(nil, nil))
	rec := doRequest(t, m, http.MethodGet, "/api/records", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when auth disabled", rec.Code)
	}
}

func TestParseJWT(t *testing.T) {
	token, err := IssueJWT("drv-9", RoleDriver, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.DriverID != "drv-9" {
		t.Errorf("DriverID = %q, want drv-9", claims.DriverID)
	}
	if claims.Role != string(RoleDriver) {
		t.Errorf("Role = %q, want driver", claims.Role)
	}

	if _, err := ParseJWT(token, []byte("wrong-secret")); err == nil {
		t.Error("expected error with wrong secret")
	}
	if _, err := ParseJWT("", testSecret); err == nil {
		t.Error("expected error with empty token")
	}

	// Driver tokens must name a driver.
	noDriver, err := IssueJWT("", RoleDriver, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if _, err := ParseJWT(noDriver, testSecret); err == nil {
		t.Error("expected error for driver token without driver_id")
	}
}

func TestMiddlewarePropagatesIdentity(t *testing.T) {
	m := newTestMiddleware()
	token, err := IssueJWT("drv-7", RoleDriver, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	var gotDriver string
	var gotRole Role
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDriver = DriverIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotDriver != "drv-7" {
		t.Errorf("DriverIDFromContext = %q, want drv-7", gotDriver)
	}
	if gotRole != RoleDriver {
		t.Errorf("RoleFromContext = %q, want driver", gotRole)
	}
}

func TestRoleAtLeast(t *testing.T) {
	if !RoleAtLeast(RoleManager, RoleDriver) {
		t.Error("manager should satisfy driver requirement")
	}
	if RoleAtLeast(RoleDriver, RoleManager) {
		t.Error("driver should not satisfy manager requirement")
	}
	if RoleAtLeast("", RoleDriver) {
		t.Error("unknown role should satisfy nothing")
	}
}
