// fake_platform.go - In-memory DocSpace platform for testing
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/docspace-portals/backend/internal/models"
)

// ErrFakeNotFound is returned for unknown folders and files.
var ErrFakeNotFound = errors.New("fake platform: not found")

// FakePlatform is a scripted DocSpace platform. Populate its exported maps
// before use; every call is counted by method name.
type FakePlatform struct {
	Room    *models.Room
	RoomErr error

	Folders    *models.FormsRoomFolders
	FoldersErr error

	Contents    map[string][]models.FolderItem
	ContentErrs map[string]error

	Files    map[string]*models.FileInfo
	FileErrs map[string]error

	FillOutLinks map[string]*models.ShareLink
	LinkErr      error
	SetLinkErr   error

	// RoomFiles are the files at the root of the forms room.
	RoomFiles []models.FileInfo

	// CreatedLinks records the links produced by SetFileExternalLink.
	CreatedLinks map[string]models.LinkOptions

	mu    sync.Mutex
	calls map[string]int
}

// NewFakePlatform returns a platform with a forms room holding empty
// "In process" and "Complete" folders.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Room: &models.Room{ID: "room-1", Title: "Patient Forms"},
		Folders: &models.FormsRoomFolders{
			InProcess: models.FolderRef{ID: "in-process", Title: "In process"},
			Complete:  models.FolderRef{ID: "complete", Title: "Complete"},
		},
		Contents:     make(map[string][]models.FolderItem),
		ContentErrs:  make(map[string]error),
		Files:        make(map[string]*models.FileInfo),
		FileErrs:     make(map[string]error),
		FillOutLinks: make(map[string]*models.ShareLink),
		CreatedLinks: make(map[string]models.LinkOptions),
		calls:        make(map[string]int),
	}
}

// AddFormFolder adds a template sub-folder under parentID.
func (f *FakePlatform) AddFormFolder(parentID, folderID, title string) {
	f.Contents[parentID] = append(f.Contents[parentID], models.FolderItem{ID: folderID, Title: title, Type: models.ItemTypeFolder})
}

// AddInstance adds a file to folderID together with its metadata.
func (f *FakePlatform) AddInstance(folderID string, info models.FileInfo) {
	f.Contents[folderID] = append(f.Contents[folderID], models.FolderItem{ID: info.ID, Title: info.Title, Type: models.ItemTypeFile})
	cp := info
	f.Files[info.ID] = &cp
}

// Calls returns how often method was invoked.
func (f *FakePlatform) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of platform calls of any kind.
func (f *FakePlatform) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakePlatform) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *FakePlatform) RequireFormsRoom(_ context.Context) (*models.Room, error) {
	f.count("RequireFormsRoom")
	if f.RoomErr != nil {
		return nil, f.RoomErr
	}
	if f.Room == nil {
		return nil, ErrFakeNotFound
	}
	return f.Room, nil
}

func (f *FakePlatform) GetFormsRoomFolders(_ context.Context, roomID string) (*models.FormsRoomFolders, error) {
	f.count("GetFormsRoomFolders")
	if f.FoldersErr != nil {
		return nil, f.FoldersErr
	}
	if f.Folders == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrFakeNotFound)
	}
	return f.Folders, nil
}

func (f *FakePlatform) GetFolderContents(_ context.Context, folderID string) (*models.FolderListing, error) {
	f.count("GetFolderContents")
	if err := f.ContentErrs[folderID]; err != nil {
		return nil, err
	}
	items, ok := f.Contents[folderID]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrFakeNotFound)
	}
	return &models.FolderListing{Items: append([]models.FolderItem(nil), items...)}, nil
}

func (f *FakePlatform) GetFileInfo(_ context.Context, fileID string) (*models.FileInfo, error) {
	f.count("GetFileInfo")
	if err := f.FileErrs[fileID]; err != nil {
		return nil, err
	}
	info, ok := f.Files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrFakeNotFound)
	}
	cp := *info
	return &cp, nil
}

func (f *FakePlatform) GetFillOutLink(_ context.Context, fileID string) (*models.ShareLink, error) {
	f.count("GetFillOutLink")
	if f.LinkErr != nil {
		return nil, f.LinkErr
	}
	return f.FillOutLinks[fileID], nil
}

func (f *FakePlatform) SetFileExternalLink(_ context.Context, fileID, _ string, opts models.LinkOptions) (*models.ShareLink, error) {
	f.count("SetFileExternalLink")
	if f.SetLinkErr != nil {
		return nil, f.SetLinkErr
	}
	f.mu.Lock()
	f.CreatedLinks[fileID] = opts
	f.mu.Unlock()
	return &models.ShareLink{
		ShareLink: "https://docspace.example/s/view-" + fileID,
		Title:     opts.Title,
		Access:    opts.Access,
	}, nil
}

func (f *FakePlatform) ListRoomFiles(_ context.Context, roomID string) ([]models.FileInfo, error) {
	f.count("ListRoomFiles")
	if f.Room == nil || roomID != f.Room.ID {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrFakeNotFound)
	}
	return append([]models.FileInfo(nil), f.RoomFiles...), nil
}

// EnsureFillOutLink returns the file's fill-out link, creating one if needed.
func (f *FakePlatform) EnsureFillOutLink(ctx context.Context, fileID string) (*models.ShareLink, error) {
	link, err := f.GetFillOutLink(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		return link, nil
	}
	link, err = f.SetFileExternalLink(ctx, fileID, "", models.LinkOptions{Access: models.AccessFillForms, Title: "Fill out"})
	if err != nil {
		return nil, err
	}
	link.ShareLink = "https://docspace.example/s/fill-" + fileID
	f.mu.Lock()
	f.FillOutLinks[fileID] = link
	f.mu.Unlock()
	return link, nil
}
