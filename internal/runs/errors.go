package runs

import (
	"errors"
	"net/http"
)

// Domain errors for run operations.
var (
	ErrNotFound     = errors.New("run not found")
	ErrDuplicate    = errors.New("run already exists")
	ErrNotCompleted = errors.New("run has not completed")
	ErrInvalidRun   = errors.New("invalid run submission")
)

// MapHTTPStatus maps run domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotCompleted) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidRun) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
