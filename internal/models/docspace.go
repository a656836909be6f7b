package models

// Item types reported in a folder listing.
const (
	ItemTypeFile   = "file"
	ItemTypeFolder = "folder"
)

// Share link access levels understood by the platform.
const (
	AccessReadWrite = 1
	AccessRead      = 2
	AccessFillForms = 7
)

// FolderItem is a single entry of a folder listing.
type FolderItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"` // "file" or "folder"
}

// FolderListing is a snapshot of a platform folder's contents.
type FolderListing struct {
	Items []FolderItem `json:"items"`
}

// FileInfo is per-file metadata reported by the platform.
// Created is an ISO-8601 timestamp and sorts correctly as a string.
type FileInfo struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Created           string `json:"created"`
	FormFillingStatus string `json:"formFillingStatus,omitempty"`
	Comment           string `json:"comment,omitempty"`
}

// FolderRef identifies a platform folder.
type FolderRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// FormsRoomFolders holds the two workflow folders of a forms room.
type FormsRoomFolders struct {
	InProcess FolderRef `json:"inProcess"`
	Complete  FolderRef `json:"complete"`
}

// Room is a platform room.
type Room struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ShareLink is an external link to a platform file.
type ShareLink struct {
	ShareLink string `json:"shareLink"`
	Title     string `json:"title,omitempty"`
	Access    int    `json:"access,omitempty"`
}

// LinkOptions configures an external link created on a file.
type LinkOptions struct {
	Access int    `json:"access"`
	Title  string `json:"title,omitempty"`
}
