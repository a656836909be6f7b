package docspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docspace-portals/backend/internal/fillsign"
	"github.com/docspace-portals/backend/internal/models"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ErrFormsRoomNotFound is returned when no forms room matches the configuration.
var ErrFormsRoomNotFound = errors.New("docspace: forms room not found")

const (
	formsRoomKey = "forms-room"

	inProcessTitle = "in process"
	completeTitle  = "complete"
)

type roomList struct {
	Folders []folderEntry `json:"folders"`
}

// RequireFormsRoom resolves the configured forms room, by id when one is
// set and by title otherwise. Results are cached.
func (c *Client) RequireFormsRoom(ctx context.Context) (*models.Room, error) {
	if v, ok := c.rooms.Get(formsRoomKey); ok {
		room := v.(models.Room)
		return &room, nil
	}

	var room *models.Room
	var err error
	switch {
	case c.cfg.FormsRoomID != "":
		room, err = c.roomByID(ctx, c.cfg.FormsRoomID)
	case c.cfg.FormsRoomTitle != "":
		room, err = c.roomByTitle(ctx, c.cfg.FormsRoomTitle)
	default:
		return nil, fmt.Errorf("%w: neither room id nor title configured", ErrFormsRoomNotFound)
	}
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", ErrFormsRoomNotFound, err)
		}
		return nil, err
	}

	c.rooms.Set(formsRoomKey, *room, cache.DefaultExpiration)
	c.logger.Info("forms room resolved", zap.String("room_id", room.ID), zap.String("title", room.Title))
	return room, nil
}

func (c *Client) roomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var f folderEntry
	if err := c.call(ctx, "GetRoom", http.MethodGet, "/files/rooms/"+url.PathEscape(roomID), nil, nil, "", &f); err != nil {
		return nil, err
	}
	if f.ID == "" {
		f.ID = flexID(roomID)
	}
	return &models.Room{ID: string(f.ID), Title: f.Title}, nil
}

func (c *Client) roomByTitle(ctx context.Context, title string) (*models.Room, error) {
	var list roomList
	q := url.Values{"filterValue": {title}}
	if err := c.call(ctx, "ListRooms", http.MethodGet, "/files/rooms", q, nil, "", &list); err != nil {
		return nil, err
	}
	want := fillsign.Normalize(title)
	for _, f := range list.Folders {
		if fillsign.Normalize(f.Title) == want {
			return &models.Room{ID: string(f.ID), Title: f.Title}, nil
		}
	}
	return nil, fmt.Errorf("%w: no room titled %q", ErrFormsRoomNotFound, title)
}

// GetFormsRoomFolders finds the "In process" and "Complete" folders of a
// forms room. Either may be missing, in which case its ID is empty.
func (c *Client) GetFormsRoomFolders(ctx context.Context, roomID string) (*models.FormsRoomFolders, error) {
	fc, err := c.folderContents(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var out models.FormsRoomFolders
	for _, f := range fc.Folders {
		ref := models.FolderRef{ID: string(f.ID), Title: f.Title}
		switch fillsign.Normalize(f.Title) {
		case inProcessTitle:
			if out.InProcess.ID == "" {
				out.InProcess = ref
			}
		case completeTitle:
			if out.Complete.ID == "" {
				out.Complete = ref
			}
		}
	}
	if out.InProcess.ID == "" && out.Complete.ID == "" {
		return nil, fmt.Errorf("docspace: room %s has no workflow folders", roomID)
	}
	return &out, nil
}

// ListRoomFiles returns the files at the root of a room.
func (c *Client) ListRoomFiles(ctx context.Context, roomID string) ([]models.FileInfo, error) {
	fc, err := c.folderContents(ctx, roomID)
	if err != nil {
		return nil, err
	}
	files := make([]models.FileInfo, 0, len(fc.Files))
	for _, f := range fc.Files {
		files = append(files, *f.info())
	}
	return files, nil
}

