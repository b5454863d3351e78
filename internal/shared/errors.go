package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrNotFound is the sentinel stores return for a missing record; handlers
// translate it to a 404.
var ErrNotFound = errors.New("not found")

// APIError is the JSON error body every HTTP handler returns. Code is a
// stable machine-readable tag; Message is safe to show to the user.
type APIError struct {
	Code    string `json:"code" example:"invalid_request"`
	Message string `json:"message" example:"Invalid request body"`
}

func httpError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, &APIError{Code: code, Message: message})
}

func BadRequest(code, message string) *echo.HTTPError {
	return httpError(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *echo.HTTPError {
	return httpError(http.StatusUnauthorized, code, message)
}

func NotFound(code, message string) *echo.HTTPError {
	return httpError(http.StatusNotFound, code, message)
}

func InternalError(code, message string) *echo.HTTPError {
	return httpError(http.StatusInternalServerError, code, message)
}
