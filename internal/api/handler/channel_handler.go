package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streampulse/user-service/internal/api/middleware"
	"github.com/streampulse/user-service/internal/api/response"
	"github.com/streampulse/user-service/internal/core/ports"
)

// ChannelHandler serves the subscription-graph read endpoints.
type ChannelHandler struct {
	channels ports.ChannelService
}

func NewChannelHandler(channels ports.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// Profile returns a channel profile with subscriber counts, as seen by the
// authenticated viewer.
//
// @Summary      Get a channel profile
// @Tags         channels
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Channel username"
// @Success      200       {object}  response.Envelope
// @Failure      404       {object}  response.ErrorEnvelope
// @Router       /users/c/{username} [get]
func (h *ChannelHandler) Profile(c echo.Context) error {
	viewer := middleware.CurrentUser(c)
	if viewer == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}

	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	profile, err := h.channels.Profile(c.Request().Context(), username, viewer.ID)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, profile, "channel profile fetched successfully")
}

// WatchHistory returns the authenticated user's watch history.
//
// @Summary      Get watch history
// @Tags         channels
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Envelope
// @Router       /users/history [get]
func (h *ChannelHandler) WatchHistory(c echo.Context) error {
	viewer := middleware.CurrentUser(c)
	if viewer == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}

	history, err := h.channels.WatchHistory(c.Request().Context(), viewer.ID)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, history, "watch history fetched successfully")
}
