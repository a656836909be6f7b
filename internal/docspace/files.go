package docspace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/docspace-portals/backend/internal/models"
)

type fileEntry struct {
	ID                flexID `json:"id"`
	Title             string `json:"title"`
	Created           string `json:"created"`
	FormFillingStatus flexID `json:"formFillingStatus"`
	Comment           string `json:"comment"`
}

func (f fileEntry) info() *models.FileInfo {
	return &models.FileInfo{
		ID:                string(f.ID),
		Title:             f.Title,
		Created:           f.Created,
		FormFillingStatus: string(f.FormFillingStatus),
		Comment:           f.Comment,
	}
}

type folderEntry struct {
	ID    flexID `json:"id"`
	Title string `json:"title"`
}

type folderContents struct {
	Files   []fileEntry   `json:"files"`
	Folders []folderEntry `json:"folders"`
	Current folderEntry   `json:"current"`
	Count   int           `json:"count"`
	Total   int           `json:"total"`
}

type linkEntry struct {
	Access   int `json:"access"`
	SharedTo struct {
		Title     string `json:"title"`
		ShareLink string `json:"shareLink"`
	} `json:"sharedTo"`
}

func (l linkEntry) shareLink() *models.ShareLink {
	return &models.ShareLink{
		ShareLink: l.SharedTo.ShareLink,
		Title:     l.SharedTo.Title,
		Access:    l.Access,
	}
}

// folderContents lists a folder page by page until the platform's total is
// reached or a short page comes back.
func (c *Client) folderContents(ctx context.Context, folderID string) (*folderContents, error) {
	var all folderContents
	for start := 0; ; {
		query := url.Values{}
		query.Set("startIndex", strconv.Itoa(start))
		query.Set("count", strconv.Itoa(c.pageSize))

		var page folderContents
		if err := c.call(ctx, "GetFolderContents", http.MethodGet, "/files/"+url.PathEscape(folderID), query, nil, "", &page); err != nil {
			return nil, err
		}
		if start == 0 {
			all.Current = page.Current
			all.Total = page.Total
		}
		all.Folders = append(all.Folders, page.Folders...)
		all.Files = append(all.Files, page.Files...)

		n := len(page.Folders) + len(page.Files)
		start += n
		if n < c.pageSize || (all.Total > 0 && start >= all.Total) {
			break
		}
	}
	all.Count = len(all.Folders) + len(all.Files)
	return &all, nil
}

// GetFolderContents lists the sub-folders and files of a folder.
func (c *Client) GetFolderContents(ctx context.Context, folderID string) (*models.FolderListing, error) {
	fc, err := c.folderContents(ctx, folderID)
	if err != nil {
		return nil, err
	}

	listing := &models.FolderListing{Items: make([]models.FolderItem, 0, len(fc.Folders)+len(fc.Files))}
	for _, f := range fc.Folders {
		listing.Items = append(listing.Items, models.FolderItem{ID: string(f.ID), Title: f.Title, Type: models.ItemTypeFolder})
	}
	for _, f := range fc.Files {
		listing.Items = append(listing.Items, models.FolderItem{ID: string(f.ID), Title: f.Title, Type: models.ItemTypeFile})
	}
	return listing, nil
}

// GetFileInfo returns a file's metadata.
func (c *Client) GetFileInfo(ctx context.Context, fileID string) (*models.FileInfo, error) {
	var f fileEntry
	if err := c.call(ctx, "GetFileInfo", http.MethodGet, "/files/file/"+url.PathEscape(fileID), nil, nil, "", &f); err != nil {
		return nil, err
	}
	info := f.info()
	if info.ID == "" {
		info.ID = fileID
	}
	return info, nil
}

func (c *Client) fileLinks(ctx context.Context, fileID string) ([]linkEntry, error) {
	var links []linkEntry
	if err := c.call(ctx, "GetFileLinks", http.MethodGet, "/files/file/"+url.PathEscape(fileID)+"/links", nil, nil, "", &links); err != nil {
		return nil, err
	}
	return links, nil
}

// GetFillOutLink returns the file's fill-out link, or nil if it has none.
func (c *Client) GetFillOutLink(ctx context.Context, fileID string) (*models.ShareLink, error) {
	links, err := c.fileLinks(ctx, fileID)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.Access == models.AccessFillForms && l.SharedTo.ShareLink != "" {
			return l.shareLink(), nil
		}
	}
	return nil, nil
}

// SetFileExternalLink creates or updates an external link on a file.
// A non-empty auth replaces the client's API key for this request.
func (c *Client) SetFileExternalLink(ctx context.Context, fileID, auth string, opts models.LinkOptions) (*models.ShareLink, error) {
	body := map[string]any{"access": opts.Access}
	if opts.Title != "" {
		body["title"] = opts.Title
	}
	var l linkEntry
	if err := c.call(ctx, "SetFileExternalLink", http.MethodPut, "/files/file/"+url.PathEscape(fileID)+"/links", nil, body, auth, &l); err != nil {
		return nil, err
	}
	if l.SharedTo.ShareLink == "" {
		return nil, fmt.Errorf("docspace SetFileExternalLink: no link returned for file %s", fileID)
	}
	return l.shareLink(), nil
}

// EnsureFillOutLink returns the file's fill-out link, creating one if needed.
func (c *Client) EnsureFillOutLink(ctx context.Context, fileID string) (*models.ShareLink, error) {
	link, err := c.GetFillOutLink(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		return link, nil
	}
	return c.SetFileExternalLink(ctx, fileID, "", models.LinkOptions{Access: models.AccessFillForms, Title: "Fill out"})
}
