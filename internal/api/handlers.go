package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is negotiated through the Accept header.
const MIMEApplicationMsgpack = "application/msgpack"

// wantsMsgpack reports whether the client asked for a msgpack body.
func wantsMsgpack(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEApplicationMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

// respond writes v as msgpack when negotiated, JSON otherwise.
func respond(c echo.Context, status int, v any) error {
	if !wantsMsgpack(c) {
		return c.JSON(status, v)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, data)
}

// requireParam returns a non-empty path parameter or a validation error.
func requireParam(c echo.Context, name string) (string, error) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		return "", NewValidationError(name)
	}
	return v, nil
}

// listResponse wraps collections so the body is always an object.
type listResponse[T any] struct {
	Items []T `json:"items" msgpack:"items"`
	Count int `json:"count" msgpack:"count"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return listResponse[T]{Items: items, Count: len(items)}
}
