package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/telefiles/filedepot/internal/pkg/errors"
)

// Response is the envelope for all JSON responses.
type Response struct {
	Code    int         `json:"code"`              // business code, 0 on success
	Message string      `json:"message,omitempty"` // human-readable message
	Data    interface{} `json:"data"`              // payload, {} when empty
}

// Success writes a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, Response{
		Code: apperrors.Success,
		Data: data,
	})
}

// Accepted writes a 202 response for asynchronously handled requests.
func Accepted(c *gin.Context, message string) {
	c.JSON(http.StatusAccepted, Response{
		Code:    apperrors.Success,
		Message: message,
		Data:    struct{}{},
	})
}

// HandleError maps an error to its business code and HTTP status.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	httpStatus := apperrors.GetHTTPStatus(code)

	message := apperrors.GetMessage(code)
	// Server-side details stay out of client responses.
	if apperrors.IsClientError(code) {
		message = apperrors.FormatError(code, apperrors.GetDetails(err))
	}

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    struct{}{},
	})
}

// ErrorWithCode writes an error response for the given business code.
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.JSON(apperrors.GetHTTPStatus(code), Response{
		Code:    code,
		Message: apperrors.FormatError(code, details...),
		Data:    struct{}{},
	})
}
