package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the error response shape for client and server failures.
type APIError struct {
	Error string `json:"error"`
}

// APIMessage is the response shape for outcome reports such as clears.
type APIMessage struct {
	Message string `json:"message"`
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// Message sends status with a message body.
func Message(c echo.Context, status int, message string) error {
	return c.JSON(status, APIMessage{Message: message})
}

// Error sends status with an error body.
func Error(c echo.Context, status int, errDetail string) error {
	return c.JSON(status, APIError{Error: errDetail})
}

// BadRequest sends 400 with error detail.
func BadRequest(c echo.Context, errDetail string) error {
	return Error(c, http.StatusBadRequest, errDetail)
}

// NotFound sends 404 with a message. A clear against a missing log is a
// reportable outcome, so it carries a message body rather than an error.
func NotFound(c echo.Context, message string) error {
	return Message(c, http.StatusNotFound, message)
}

// InternalError sends 500 with error detail.
func InternalError(c echo.Context, errDetail string) error {
	return Error(c, http.StatusInternalServerError, errDetail)
}
