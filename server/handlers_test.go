package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schooltone/config"
	"schooltone/core/apperr"
	"schooltone/core/auth"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.NotFoundf("event 5"), http.StatusNotFound},
		{apperr.Validationf("bad size"), http.StatusBadRequest},
		{apperr.Conflictf("already rejected"), http.StatusConflict},
		{fmt.Errorf("part 2: %w", apperr.ErrIntegrityMismatch), http.StatusUnprocessableEntity},
		{apperr.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("writeError(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func testHandler(t *testing.T) *APIHandler {
	t.Helper()
	return NewAPIHandler(nil, nil, nil, nil, nil, nil, &config.Config{JWTSecret: "test-secret"})
}

func bearer(t *testing.T, role string, events ...int64) string {
	t.Helper()
	token, err := auth.GenerateToken("test-secret", 1, role, events, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	h := testHandler(t)
	var gotClaims *auth.Claims
	wrapped := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		wrapped(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token reaches handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, auth.RoleParent, 4))
		rec := httptest.NewRecorder()
		wrapped(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", rec.Code)
		}
		if gotClaims == nil || !gotClaims.HasEntitlement(4) {
			t.Error("claims not propagated through the request context")
		}
	})
}

func TestRequireRole(t *testing.T) {
	h := testHandler(t)
	wrapped := h.RequireRole(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, auth.RoleAdmin, auth.RoleTeacher)

	cases := []struct {
		role string
		want int
	}{
		{auth.RoleAdmin, http.StatusOK},
		{auth.RoleTeacher, http.StatusOK},
		{auth.RoleParent, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", bearer(t, tc.role))
		rec := httptest.NewRecorder()
		wrapped(rec, req)
		if rec.Code != tc.want {
			t.Errorf("role %s: code = %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}
