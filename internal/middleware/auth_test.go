package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maimweb/backend/internal/auth"
	"github.com/maimweb/backend/internal/model"
)

type stubAuthenticator struct {
	users map[string]*model.User
	err   error
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, auth.ErrInvalidToken
}

func newAuthHandler(a Authenticator) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Auth(AuthConfig{Logger: logger, Authenticator: a})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.PrincipalFromContext(r.Context())
			if user == nil {
				w.WriteHeader(http.StatusTeapot)
				return
			}
			_, _ = w.Write([]byte(user.ID))
		}),
	)
}

func TestAuth_ValidToken(t *testing.T) {
	handler := newAuthHandler(&stubAuthenticator{
		users: map[string]*model.User{"good": {ID: "user_1", IsActive: true}},
	})

	for _, header := range []string{"Bearer good", "bearer good", "Bearer  good "} {
		req := httptest.NewRequest(http.MethodGet, "/agents", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", header, rec.Code)
		}
		if rec.Body.String() != "user_1" {
			t.Errorf("%q: expected principal user_1, got %q", header, rec.Body.String())
		}
	}
}

func TestAuth_FailuresShareOneResponse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		err    error
	}{
		{"missing header", "", nil},
		{"wrong scheme", "Basic dXNlcjpwYXNz", nil},
		{"empty token", "Bearer ", nil},
		{"unknown token", "Bearer nope", nil},
		{"expired token", "Bearer old", auth.ErrExpiredToken},
	}

	var bodies []string
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			handler := newAuthHandler(&stubAuthenticator{err: tt.err})
			req := httptest.NewRequest(http.MethodGet, "/agents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("expected WWW-Authenticate: Bearer")
			}
			if !strings.Contains(rec.Body.String(), `"code":"UNAUTHORIZED"`) {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
			bodies = append(bodies, rec.Body.String())
		})
	}

	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Errorf("auth failures must be indistinguishable: %q vs %q", b, bodies[0])
		}
	}
}

func TestAuth_InfrastructureErrorIs500(t *testing.T) {
	handler := newAuthHandler(&stubAuthenticator{err: errors.New("connection refused")})
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("internal error details must not leak")
	}
}

func TestRecoverer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"INTERNAL_ERROR"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"generated", "", false},
		{"reused", "req-123", true},
		{"too long", strings.Repeat("a", 200), false},
		{"control characters", "bad\nid", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("expected a request id")
			}
			if (seen == tt.inbound) != tt.reuse {
				t.Errorf("request id = %q, reuse = %v", seen, tt.reuse)
			}
			if rec.Header().Get(RequestIDHeader) != seen {
				t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
			}
		})
	}
}
