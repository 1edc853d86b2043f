package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/streampulse/user-service/internal/core/domain"
	"github.com/streampulse/user-service/internal/core/ports"
)

var testUser = &domain.PublicUser{
	ID:        "user-1",
	Username:  "ann",
	Email:     "a@x.com",
	FullName:  "Ann Example",
	AvatarURL: "https://media.example.com/avatars/1",
}

type stubUserSvc struct {
	loginErr   error
	registered *ports.RegisterInput
	loggedOut  []string
	pwChanges  [][2]string
}

func (s *stubUserSvc) Register(_ context.Context, in ports.RegisterInput) (*domain.PublicUser, error) {
	s.registered = &in
	return testUser, nil
}

func (s *stubUserSvc) Login(_ context.Context, _, _ string) (*domain.PublicUser, *ports.TokenPair, error) {
	if s.loginErr != nil {
		return nil, nil, s.loginErr
	}
	return testUser, &ports.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
}

func (s *stubUserSvc) Logout(_ context.Context, userID string) error {
	s.loggedOut = append(s.loggedOut, userID)
	return nil
}

func (s *stubUserSvc) ChangePassword(_ context.Context, _, oldPassword, newPassword string) error {
	s.pwChanges = append(s.pwChanges, [2]string{oldPassword, newPassword})
	return nil
}

func (s *stubUserSvc) GetByID(_ context.Context, _ string) (*domain.PublicUser, error) {
	return testUser, nil
}

func (s *stubUserSvc) UpdateAccount(_ context.Context, _ string, _ ports.UpdateAccountInput) (*domain.PublicUser, error) {
	return testUser, nil
}

func (s *stubUserSvc) UpdateAvatar(_ context.Context, _ string, _ *ports.FileInput) (*domain.PublicUser, error) {
	return testUser, nil
}

func (s *stubUserSvc) UpdateCoverImage(_ context.Context, _ string, _ *ports.FileInput) (*domain.PublicUser, error) {
	return testUser, nil
}

type stubSessionMgr struct {
	valid string // the single refresh value Rotate accepts
}

func (s *stubSessionMgr) Issue(_ context.Context, _ string) (*ports.TokenPair, error) {
	return &ports.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
}

func (s *stubSessionMgr) Rotate(_ context.Context, presented string) (*ports.TokenPair, error) {
	if presented != s.valid {
		return nil, domain.ErrInvalidToken
	}
	s.valid = "refresh-next"
	return &ports.TokenPair{AccessToken: "access-next", RefreshToken: "refresh-next"}, nil
}

func (s *stubSessionMgr) Revoke(_ context.Context, _ string) error {
	s.valid = ""
	return nil
}

func newHandlerFixture() (*UserHandler, *stubUserSvc, *stubSessionMgr, *echo.Echo) {
	users := &stubUserSvc{}
	sessions := &stubSessionMgr{valid: "refresh-1"}
	e := echo.New()
	e.Validator = NewValidator()
	return NewUserHandler(users, sessions, false), users, sessions, e
}

func newContext(e *echo.Echo, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// authenticated mirrors what the auth guard attaches for a guarded route.
func authenticated(c echo.Context) {
	c.Set("auth.identity", testUser)
}

func multipartRegister(t *testing.T, withAvatar bool) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fields := map[string]string{
		"fullName": "Ann Example",
		"email":    "a@x.com",
		"username": "Ann",
		"password": "pw123456",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if withAvatar {
		fw, err := w.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(fw, "png-bytes"); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/users/register", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestUserHandler_Register(t *testing.T) {
	h, users, _, e := newHandlerFixture()
	c, rec := newContext(e, multipartRegister(t, true))

	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if users.registered == nil || users.registered.Avatar == nil {
		t.Fatalf("service did not receive the avatar upload")
	}
	if strings.Contains(rec.Body.String(), "pw123456") {
		t.Fatalf("password leaked into response: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"username":"ann"`) {
		t.Fatalf("response missing user projection: %s", rec.Body.String())
	}
}

func TestUserHandler_Register_MissingAvatar(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	c, _ := newContext(e, multipartRegister(t, false))

	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestUserHandler_Login_SetsCookies(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/login",
		strings.NewReader(`{"username":"ann","password":"pw123456"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(e, req)

	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	access := cookieByName(rec, "accessToken")
	refresh := cookieByName(rec, "refreshToken")
	if access == nil || access.Value != "access-1" {
		t.Fatalf("access cookie not set: %+v", access)
	}
	if refresh == nil || refresh.Value != "refresh-1" {
		t.Fatalf("refresh cookie not set: %+v", refresh)
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatalf("auth cookies must be httpOnly")
	}

	var envelope struct {
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.AccessToken != "access-1" || envelope.Data.RefreshToken != "refresh-1" {
		t.Fatalf("tokens missing from body: %+v", envelope.Data)
	}
}

func TestUserHandler_Login_WrongPassword(t *testing.T) {
	h, users, _, e := newHandlerFixture()
	users.loginErr = domain.ErrInvalidCredentials
	req := httptest.NewRequest(http.MethodPost, "/users/login",
		strings.NewReader(`{"username":"ann","password":"nope1234"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(e, req)

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookies must be set on failed login")
	}
}

func TestUserHandler_Login_MissingIdentifier(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/login",
		strings.NewReader(`{"password":"pw123456"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, _ := newContext(e, req)

	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestUserHandler_Refresh_FromCookie(t *testing.T) {
	h, _, sessions, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "refresh-1"})
	c, rec := newContext(e, req)

	if err := h.Refresh(c); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := cookieByName(rec, "refreshToken"); got == nil || got.Value != "refresh-next" {
		t.Fatalf("rotated refresh cookie not set: %+v", got)
	}
	if sessions.valid != "refresh-next" {
		t.Fatalf("session manager did not rotate: %q", sessions.valid)
	}
}

func TestUserHandler_Refresh_FromBody(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/refresh-token",
		strings.NewReader(`{"refreshToken":"refresh-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(e, req)

	if err := h.Refresh(c); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_Refresh_SupersededToken(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/refresh-token",
		strings.NewReader(`{"refreshToken":"refresh-old"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(e, req)

	if err := h.Refresh(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookies must be set on rejected rotation")
	}
}

func TestUserHandler_Refresh_MissingToken(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/refresh-token", nil)
	c, _ := newContext(e, req)

	err := h.Refresh(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestUserHandler_Logout_ClearsCookies(t *testing.T) {
	h, users, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/logout", nil)
	c, rec := newContext(e, req)
	authenticated(c)

	if err := h.Logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(users.loggedOut) != 1 || users.loggedOut[0] != testUser.ID {
		t.Fatalf("expected logout for %s, got %v", testUser.ID, users.loggedOut)
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie := cookieByName(rec, name)
		if cookie == nil || cookie.Value != "" || cookie.MaxAge != -1 {
			t.Fatalf("cookie %s not cleared: %+v", name, cookie)
		}
	}
}

func TestUserHandler_Logout_Unauthenticated(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/logout", nil)
	c, _ := newContext(e, req)

	err := h.Logout(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestUserHandler_ChangePassword(t *testing.T) {
	h, users, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/change-password",
		strings.NewReader(`{"oldPassword":"pw123456","newPassword":"newpass123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(e, req)
	authenticated(c)

	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(users.pwChanges) != 1 || users.pwChanges[0] != [2]string{"pw123456", "newpass123"} {
		t.Fatalf("unexpected change calls: %v", users.pwChanges)
	}
}

func TestUserHandler_ChangePassword_ShortPassword(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/users/change-password",
		strings.NewReader(`{"oldPassword":"pw123456","newPassword":"short"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, _ := newContext(e, req)
	authenticated(c)

	err := h.ChangePassword(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestUserHandler_CurrentUser(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodGet, "/users/current-user", nil)
	c, rec := newContext(e, req)
	authenticated(c)

	if err := h.CurrentUser(c); err != nil {
		t.Fatalf("current user: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"ann"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUserHandler_UpdateAccount(t *testing.T) {
	h, _, _, e := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPatch, "/users/update-account",
		strings.NewReader(`{"fullName":"Ann Updated","email":"new@x.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(e, req)
	authenticated(c)

	if err := h.UpdateAccount(c); err != nil {
		t.Fatalf("update account: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
