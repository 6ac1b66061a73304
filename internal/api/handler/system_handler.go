package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pawhaus/boarding-api/internal/core/ports"
)

// SystemHandler lets operators broadcast messages to every users channel
// subscriber.
type SystemHandler struct {
	notifier ports.Notifier
}

func NewSystemHandler(notifier ports.Notifier) *SystemHandler {
	return &SystemHandler{notifier: notifier}
}

type systemNotificationRequest struct {
	Message string `json:"message" validate:"required,max=500"`
	Level   string `json:"level"   validate:"omitempty,oneof=info warning error"`
}

// Notify handles POST /system/notifications.
//
// @Summary      Broadcast a system notification
// @Tags         system
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  systemNotificationRequest  true  "Message"
// @Success      202
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /system/notifications [post]
func (h *SystemHandler) Notify(c echo.Context) error {
	var req systemNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.notifier.NotifySystem(c.Request().Context(), req.Message, req.Level)
	return c.NoContent(http.StatusAccepted)
}
