package docspace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/docspace-portals/backend/internal/fillsign"
	"github.com/docspace-portals/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ fillsign.Platform = (*Client)(nil)

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"response": payload, "status": 0, "statusCode": status})
}

func newTestClient(t *testing.T, cfg Config, mux *http.ServeMux) *Client {
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(Config{BaseURL: "https://portal.example"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(Config{BaseURL: "not a url", APIKey: "k"}, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://portal.example/", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestClient_GetFolderContents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/files/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		respond(w, http.StatusOK, map[string]any{
			"folders": []map[string]any{{"id": 7, "title": "Consent Form"}},
			"files":   []map[string]any{{"id": 1001, "title": "John Smith - Consent Form.pdf"}},
		})
	})
	c := newTestClient(t, Config{}, mux)

	listing, err := c.GetFolderContents(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []models.FolderItem{
		{ID: "7", Title: "Consent Form", Type: models.ItemTypeFolder},
		{ID: "1001", Title: "John Smith - Consent Form.pdf", Type: models.ItemTypeFile},
	}, listing.Items)
}

func TestClient_GetFolderContents_Pages(t *testing.T) {
	files := []map[string]any{
		{"id": 1, "title": "John Smith - Consent Form.pdf"},
		{"id": 2, "title": "Jane Doe - Consent Form.pdf"},
		{"id": 3, "title": "3 - John Smith - Consent Form.pdf"},
		{"id": 4, "title": "Ann Lee - Consent Form.pdf"},
		{"id": 5, "title": "Bob Ray - Consent Form.pdf"},
	}
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/files/42", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		start, err := strconv.Atoi(r.URL.Query().Get("startIndex"))
		if !assert.NoError(t, err) {
			return
		}
		end := min(start+2, len(files))
		respond(w, http.StatusOK, map[string]any{
			"files":      files[start:end],
			"folders":    []any{},
			"startIndex": start,
			"count":      end - start,
			"total":      len(files),
		})
	})
	c := newTestClient(t, Config{}, mux)
	c.pageSize = 2

	listing, err := c.GetFolderContents(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, listing.Items, len(files))
	assert.Equal(t, "5", listing.Items[4].ID)
	assert.EqualValues(t, 3, requests.Load())
}

func TestClient_GetFileInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/files/file/1001", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{
			"id":                1001,
			"title":             "John Smith - Consent Form.pdf",
			"created":           "2025-03-01T09:00:00.0000000Z",
			"formFillingStatus": "Complete",
			"comment":           "Submitted form",
		})
	})
	mux.HandleFunc("/api/2.0/files/file/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"message":"The required file was not found"},"statusCode":404}`)
	})
	c := newTestClient(t, Config{}, mux)

	info, err := c.GetFileInfo(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", info.ID)
	assert.Equal(t, "Complete", info.FormFillingStatus)
	assert.Equal(t, "Submitted form", info.Comment)
	assert.Equal(t, "2025-03-01T09:00:00.0000000Z", info.Created)

	_, err = c.GetFileInfo(context.Background(), "404")
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusNotFound, de.Status)
	assert.Equal(t, "The required file was not found", de.Details)
	assert.True(t, IsNotFound(err))
}

func TestClient_Links(t *testing.T) {
	var puts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/files/file/1/links", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, []map[string]any{
			{"access": 2, "sharedTo": map[string]any{"title": "View", "shareLink": "https://p/s/view"}},
			{"access": 7, "sharedTo": map[string]any{"title": "Fill out", "shareLink": "https://p/s/fill"}},
		})
	})
	mux.HandleFunc("/api/2.0/files/file/2/links", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			respond(w, http.StatusOK, []map[string]any{})
		case http.MethodPut:
			puts.Add(1)
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.EqualValues(t, models.AccessFillForms, body["access"])
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			respond(w, http.StatusOK, map[string]any{
				"access":   7,
				"sharedTo": map[string]any{"title": "Fill out", "shareLink": "https://p/s/new"},
			})
		}
	})
	mux.HandleFunc("/api/2.0/files/file/3/links", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer other-token", r.Header.Get("Authorization"))
		respond(w, http.StatusOK, map[string]any{
			"access":   2,
			"sharedTo": map[string]any{"shareLink": "https://p/s/read"},
		})
	})
	c := newTestClient(t, Config{}, mux)
	ctx := context.Background()

	link, err := c.GetFillOutLink(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "https://p/s/fill", link.ShareLink)

	link, err = c.GetFillOutLink(ctx, "2")
	require.NoError(t, err)
	assert.Nil(t, link)

	link, err = c.EnsureFillOutLink(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "https://p/s/new", link.ShareLink)
	assert.Equal(t, int32(1), puts.Load())

	link, err = c.EnsureFillOutLink(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "https://p/s/fill", link.ShareLink)
	assert.Equal(t, int32(1), puts.Load())

	link, err = c.SetFileExternalLink(ctx, "3", "other-token", models.LinkOptions{Access: models.AccessRead})
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, link.Access)
}

func TestClient_RequireFormsRoom(t *testing.T) {
	t.Run("by id, cached", func(t *testing.T) {
		var hits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/api/2.0/files/rooms/9", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			respond(w, http.StatusOK, map[string]any{"id": 9, "title": "Patient Forms"})
		})
		c := newTestClient(t, Config{FormsRoomID: "9"}, mux)

		for i := 0; i < 3; i++ {
			room, err := c.RequireFormsRoom(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "9", room.ID)
		}
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("by title", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/2.0/files/rooms", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Patient Forms", r.URL.Query().Get("filterValue"))
			respond(w, http.StatusOK, map[string]any{"folders": []map[string]any{
				{"id": 3, "title": "Patient Forms Archive"},
				{"id": 4, "title": "patient  forms"},
			}})
		})
		c := newTestClient(t, Config{FormsRoomTitle: "Patient Forms"}, mux)

		room, err := c.RequireFormsRoom(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "4", room.ID)
	})

	t.Run("missing", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/2.0/files/rooms/9", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		c := newTestClient(t, Config{FormsRoomID: "9"}, mux)
		_, err := c.RequireFormsRoom(context.Background())
		assert.ErrorIs(t, err, ErrFormsRoomNotFound)

		c2 := newTestClient(t, Config{}, http.NewServeMux())
		_, err = c2.RequireFormsRoom(context.Background())
		assert.ErrorIs(t, err, ErrFormsRoomNotFound)
	})
}

func TestClient_GetFormsRoomFolders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/files/9", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{
			"folders": []map[string]any{
				{"id": 10, "title": "In Process"},
				{"id": 11, "title": "Complete"},
				{"id": 12, "title": "Templates"},
			},
			"files": []map[string]any{{"id": 500, "title": "Consent Form.pdf", "created": "2025-01-01T00:00:00Z"}},
		})
	})
	mux.HandleFunc("/api/2.0/files/8", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"folders": []any{}, "files": []any{}})
	})
	c := newTestClient(t, Config{}, mux)
	ctx := context.Background()

	folders, err := c.GetFormsRoomFolders(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "10", folders.InProcess.ID)
	assert.Equal(t, "11", folders.Complete.ID)

	_, err = c.GetFormsRoomFolders(ctx, "8")
	assert.Error(t, err)

	files, err := c.ListRoomFiles(ctx, "9")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "500", files[0].ID)
	assert.Equal(t, "Consent Form.pdf", files[0].Title)
}

func TestError_Message(t *testing.T) {
	e := &Error{Status: 502, Message: "GetFileInfo failed", Details: "upstream"}
	assert.Equal(t, "docspace: GetFileInfo failed (status 502): upstream", e.Error())
	e.Details = ""
	assert.Equal(t, "docspace: GetFileInfo failed (status 502)", e.Error())
}
