package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

// headerRequestID mirrors the header set by the request id middleware
const headerRequestID = "X-Request-ID"

// ErrorResponse is the body of every non 404 failure of the dev store.
// Missing records answer a bare {} like json-server does.
type ErrorResponse struct {
	Status    string `json:"status"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Status:  "error",
		Message: message,
	}
}

// Abort stops the chain with status and an error body tagged with the
// request id.
func Abort(c *gin.Context, status int, message string) {
	resp := NewErrorResponse(message)
	resp.RequestID = c.Writer.Header().Get(headerRequestID)
	c.AbortWithStatusJSON(status, resp)
}

// RespondError writes err the way the store client expects to read it back.
// It reports whether err was an unclassified failure the caller should log.
func RespondError(c *gin.Context, err error) bool {
	if apperrors.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{})
		return false
	}

	status := apperrors.StatusOf(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	kind := apperrors.KindOf(err)
	msg := apperrors.MessageOf(err)
	if kind == apperrors.KindUnknown || msg == "" {
		msg = "internal server error"
	}

	resp := NewErrorResponse(msg)
	resp.Kind = kind.String()
	resp.RequestID = c.Writer.Header().Get(headerRequestID)
	c.JSON(status, resp)
	return kind == apperrors.KindUnknown
}
