package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

func TestAuthMiddlewarePassesUserID(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.GenerateToken("user-42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var gotUserID string
	handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUserID != "user-42" {
		t.Errorf("user id = %q, want %q", gotUserID, "user-42")
	}
}

func TestAuthMiddlewareRejectsBadRequests(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be reached")
			})

			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddlewareRejectsTokenSignedWithOtherSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-one")
	token, err := utils.GenerateToken("user-42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Setenv("JWT_SECRET", "secret-two")
	handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
