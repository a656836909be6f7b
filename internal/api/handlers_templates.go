// handlers_templates.go - Form template listing
package api

import (
	"net/http"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// TemplateHandlerImpl implements the TemplateHandler interface
type TemplateHandlerImpl struct {
	platform FormsPlatform
}

// NewTemplateHandler creates a new template handler instance
func NewTemplateHandler(platform FormsPlatform) TemplateHandler {
	return &TemplateHandlerImpl{platform: platform}
}

type templatesResponse struct {
	Room      models.Room       `json:"room"`
	Templates []models.FileInfo `json:"templates"`
}

// HandleListTemplates returns the files at the root of the forms room
func (h *TemplateHandlerImpl) HandleListTemplates(c echo.Context) error {
	ctx := c.Request().Context()
	room, err := h.platform.RequireFormsRoom(ctx)
	if err != nil {
		return err
	}
	files, err := h.platform.ListRoomFiles(ctx, room.ID)
	if err != nil {
		return err
	}
	if files == nil {
		files = make([]models.FileInfo, 0)
	}
	return c.JSON(http.StatusOK, templatesResponse{Room: *room, Templates: files})
}
