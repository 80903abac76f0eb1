package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegisterValidationSentinel(t *testing.T) {
	svc := NewService(nil, ServiceConfig{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Password: "longenough",
		FullName: "A",
	})
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
}

// Validation failures happen before any database access, so a nil pool is
// safe here and proves the handler rejects bad input without touching storage.
func TestRegisterRejectsInvalidInput(t *testing.T) {
	h := NewHandler(NewService(nil, ServiceConfig{}))

	tests := []struct {
		name string
		body string
	}{
		{name: "bad email", body: `{"email":"not-an-email","password":"longenough","full_name":"A"}`},
		{name: "short password", body: `{"email":"a@example.test","password":"short","full_name":"A"}`},
		{name: "missing full name", body: `{"email":"a@example.test","password":"longenough","full_name":"  "}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(tc.body)))
			w := httptest.NewRecorder()

			h.Register(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}
