package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestError_Is(t *testing.T) {
	err := New(ErrNotFound, "user not found")

	if !errors.Is(err, New(ErrNotFound, "")) {
		t.Error("expected errors with the same code to match")
	}
	if errors.Is(err, New(ErrConflict, "")) {
		t.Error("expected errors with different codes not to match")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrInternal, "database unavailable")

	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to expose its cause")
	}
}

func TestWrap_NilError(t *testing.T) {
	if Wrap(nil, ErrInternal, "message") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrInternal, http.StatusInternalServerError},
		{ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := New(tt.code, "msg").HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, New(ErrValidation, "email has invalid format"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %s", ct)
	}

	var problem ProblemDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem body: %v", err)
	}
	if problem.Status != http.StatusBadRequest {
		t.Errorf("expected problem status 400, got %d", problem.Status)
	}
	if problem.Detail != "email has invalid format" {
		t.Errorf("unexpected problem detail: %s", problem.Detail)
	}
	if problem.Type == "" {
		t.Error("expected problem type to be set")
	}
}

func TestWriteProblem_MasksUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, fmt.Errorf("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	var problem ProblemDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem body: %v", err)
	}
	if problem.Detail != "internal server error" {
		t.Errorf("expected internal details to be masked, got: %s", problem.Detail)
	}
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 after panic, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %s", ct)
	}
}
