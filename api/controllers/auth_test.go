package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/api/middleware"
	"github.com/smartinventory/inventory-backend/internal/auth"
	"github.com/smartinventory/inventory-backend/internal/users"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type stubAuthService struct {
	auth.Service

	loginReq    auth.LoginRequest
	loginResp   *auth.LoginResponse
	loginErr    error
	refreshTok  string
	refreshReq  auth.RefreshRequest
	refreshResp *auth.RefreshResponse
	loggedOut   string
	meResp      *users.UserDTO
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.loginReq = req
	return s.loginResp, s.loginErr
}

func (s *stubAuthService) Refresh(_ context.Context, token string, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	s.refreshTok = token
	s.refreshReq = req
	return s.refreshResp, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.loggedOut = accessID
	return nil
}

func (s *stubAuthService) Me(_ context.Context, _ uuid.UUID) (*users.UserDTO, error) {
	return s.meResp, nil
}

func TestAuthLoginReturnsTokens(t *testing.T) {
	svc := &stubAuthService{loginResp: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}}
	handler := AuthLogin(svc, nil)

	body := `{"email":"ops@example.com","password":"orange-crate-17"}`
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.loginReq.Email != "ops@example.com" {
		t.Fatalf("unexpected email forwarded: %s", svc.loginReq.Email)
	}
	var payload struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.AccessToken != "access" {
		t.Fatalf("expected access token got %q", payload.Data.AccessToken)
	}
}

func TestAuthLoginRejectsBadBody(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"email":"no-password"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthRefreshForwardsBearerToken(t *testing.T) {
	svc := &stubAuthService{refreshResp: &auth.RefreshResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	handler := AuthRefresh(svc, nil)

	body := `{"refresh_token":"old-refresh"}`
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.refreshTok != "expired-token" {
		t.Fatalf("expected bearer token forwarded, got %q", svc.refreshTok)
	}
	if svc.refreshReq.RefreshToken != "old-refresh" {
		t.Fatalf("expected refresh token forwarded, got %q", svc.refreshReq.RefreshToken)
	}
}

func TestAuthLogoutRevokesContextSession(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthLogout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(middleware.WithAccessID(req.Context(), "jti-123"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.loggedOut != "jti-123" {
		t.Fatalf("expected session jti-123 revoked got %q", svc.loggedOut)
	}
}

func TestAuthLogoutWithoutSessionIsUnauthorized(t *testing.T) {
	handler := AuthLogout(&stubAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized code got %s", payload.Error.Code)
	}
}
