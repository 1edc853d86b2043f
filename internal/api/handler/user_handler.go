package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streampulse/user-service/internal/api/metrics"
	"github.com/streampulse/user-service/internal/api/middleware"
	"github.com/streampulse/user-service/internal/api/response"
	"github.com/streampulse/user-service/internal/core/ports"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"
)

// UserHandler exposes account operations. Session lifecycle work happens in
// the SessionManager; handlers only shape requests and responses.
type UserHandler struct {
	users        ports.UserService
	sessions     ports.SessionManager
	cookieSecure bool
}

func NewUserHandler(users ports.UserService, sessions ports.SessionManager, cookieSecure bool) *UserHandler {
	return &UserHandler{users: users, sessions: sessions, cookieSecure: cookieSecure}
}

// Register creates a new account from a multipart form carrying the profile
// fields plus an avatar file (required) and cover image (optional).
//
// @Summary      Register a new user
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        fullName   formData  string  true   "Display name"
// @Param        email      formData  string  true   "Email address"
// @Param        username   formData  string  true   "Unique username"
// @Param        password   formData  string  true   "Password"
// @Param        avatar     formData  file    true   "Avatar image"
// @Param        coverImage formData  file    false  "Cover image"
// @Success      201  {object}  response.Envelope
// @Failure      400  {object}  response.ErrorEnvelope
// @Failure      409  {object}  response.ErrorEnvelope
// @Router       /users/register [post]
func (h *UserHandler) Register(c echo.Context) error {
	avatar, err := fileInput(c, "avatar")
	if err != nil {
		return err
	}
	cover, _ := fileInput(c, "coverImage") // optional

	in := ports.RegisterInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		FullName: c.FormValue("fullName"),
		Password: c.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	}

	user, err := h.users.Register(c.Request().Context(), in)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return response.JSON(c, http.StatusCreated, user, "user registered successfully")
}

// Login verifies credentials and issues a token pair, both in the body and
// as httpOnly cookies.
//
// @Summary      Login with username or email
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  response.Envelope
// @Failure      401   {object}  response.ErrorEnvelope
// @Failure      404   {object}  response.ErrorEnvelope
// @Router       /users/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username or email is required")
	}

	user, pair, err := h.users.Login(c.Request().Context(), identifier, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("unauthorized").Inc()
		return err
	}

	h.setAuthCookies(c, pair)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return response.JSON(c, http.StatusOK, echo.Map{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "user logged in successfully")
}

// Logout revokes the current session and clears both auth cookies.
//
// @Summary      Logout the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Envelope
// @Failure      401  {object}  response.ErrorEnvelope
// @Router       /users/logout [post]
func (h *UserHandler) Logout(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}

	if err := h.users.Logout(c.Request().Context(), user.ID); err != nil {
		return err
	}

	h.clearAuthCookies(c)
	metrics.SessionsRevokedTotal.Inc()
	return response.JSON(c, http.StatusOK, echo.Map{}, "logged out successfully")
}

// Refresh exchanges a refresh token, taken from the refreshToken cookie or
// the request body, for a new pair. A superseded or revoked token is
// rejected even when its signature still verifies.
//
// @Summary      Rotate the refresh token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (falls back to cookie)"
// @Success      200   {object}  response.Envelope
// @Failure      401   {object}  response.ErrorEnvelope
// @Router       /users/refresh-token [post]
func (h *UserHandler) Refresh(c echo.Context) error {
	presented := ""
	if cookie, err := c.Cookie(cookieRefreshToken); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	pair, err := h.sessions.Rotate(c.Request().Context(), presented)
	if err != nil {
		metrics.TokenRotationsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	h.setAuthCookies(c, pair)
	metrics.TokenRotationsTotal.WithLabelValues("success").Inc()
	return response.JSON(c, http.StatusOK, echo.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "access token refreshed")
}

// ChangePassword verifies the current password and stores a new one.
//
// @Summary      Change the current user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Old and new password"
// @Success      200   {object}  response.Envelope
// @Failure      401   {object}  response.ErrorEnvelope
// @Router       /users/change-password [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.users.ChangePassword(c.Request().Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, echo.Map{}, "password changed successfully")
}

// CurrentUser returns the authenticated identity attached by the auth guard.
//
// @Summary      Get the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Envelope
// @Failure      401  {object}  response.ErrorEnvelope
// @Router       /users/current-user [get]
func (h *UserHandler) CurrentUser(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return response.JSON(c, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount updates the editable profile fields.
//
// @Summary      Update account details
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateAccountRequest  true  "New account details"
// @Success      200   {object}  response.Envelope
// @Failure      400   {object}  response.ErrorEnvelope
// @Router       /users/update-account [patch]
func (h *UserHandler) UpdateAccount(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.users.UpdateAccount(c.Request().Context(), user.ID, ports.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, updated, "account details updated successfully")
}

// UpdateAvatar replaces the user's avatar image.
//
// @Summary      Update avatar
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar  formData  file  true  "New avatar image"
// @Success      200     {object}  response.Envelope
// @Router       /users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar")
}

// UpdateCoverImage replaces the user's cover image.
//
// @Summary      Update cover image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        coverImage  formData  file  true  "New cover image"
// @Success      200         {object}  response.Envelope
// @Router       /users/cover-image [patch]
func (h *UserHandler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage")
}

func (h *UserHandler) updateImage(c echo.Context, field string) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}

	file, err := fileInput(c, field)
	if err != nil {
		return err
	}

	kind := "avatar"
	update := h.users.UpdateAvatar
	if field == "coverImage" {
		kind = "cover"
		update = h.users.UpdateCoverImage
	}

	updated, err := update(c.Request().Context(), user.ID, file)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(kind, "error").Inc()
		return err
	}

	metrics.UploadsTotal.WithLabelValues(kind, "success").Inc()
	return response.JSON(c, http.StatusOK, updated, kind+" image updated successfully")
}

// fileInput opens one multipart file field. The returned reader stays open
// until the request completes; echo closes the underlying form.
func fileInput(c echo.Context, field string) (*ports.FileInput, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, field+" file is required")
	}
	return openFile(fh)
}

func openFile(fh *multipart.FileHeader) (*ports.FileInput, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unable to read uploaded file")
	}
	return &ports.FileInput{
		Reader:      f,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

func (h *UserHandler) setAuthCookies(c echo.Context, pair *ports.TokenPair) {
	c.SetCookie(h.authCookie(cookieAccessToken, pair.AccessToken, 0))
	c.SetCookie(h.authCookie(cookieRefreshToken, pair.RefreshToken, 0))
}

func (h *UserHandler) clearAuthCookies(c echo.Context) {
	c.SetCookie(h.authCookie(cookieAccessToken, "", -1))
	c.SetCookie(h.authCookie(cookieRefreshToken, "", -1))
}

func (h *UserHandler) authCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
