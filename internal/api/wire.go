package api

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Identity headers set by the identity provider in front of the backend.
const (
	HeaderUser = "X-Marks-User"
	HeaderKey  = "X-Marks-Key"
)

// Collection route segments under /api.
const (
	KindSpaces    = "spaces"
	KindGroups    = "groups"
	KindBookmarks = "bookmarks"
)

// ReorderRequest is the body of POST /api/{kind}/reorder.
type ReorderRequest struct {
	ParentID   string   `json:"parentId"`
	OrderedIDs []string `json:"orderedIds"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known codes back onto the domain sentinels so callers can
// use errors.Is on either side of the wire.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	case http.StatusUnauthorized:
		return domain.ErrNotAuthenticated
	}
	return nil
}
