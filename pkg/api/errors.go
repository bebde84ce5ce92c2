package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
)

// errorBody is the caller-visible shape of every non-2xx response, kind
// naming one of apierrors' taxonomy values so clients can branch on it
// without parsing message text.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusFor maps an apierrors.Kind to its HTTP status, the transport-layer
// half of the error taxonomy — the core itself never knows about HTTP.
func statusFor(kind apierrors.Kind) int {
	switch kind {
	case apierrors.KindInvalidArgument:
		return http.StatusBadRequest
	case apierrors.KindNotFound:
		return http.StatusNotFound
	case apierrors.KindPermissionDenied:
		return http.StatusForbidden
	case apierrors.KindConflict:
		return http.StatusConflict
	case apierrors.KindIntegrityError:
		return http.StatusUnprocessableEntity
	case apierrors.KindResourceExhausted:
		return http.StatusTooManyRequests
	case apierrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeErr maps err to its HTTP status and JSON body. It does not write an
// audit log entry itself — callers that need one (every mutation besides
// record_event) call auditOutcome right after the service/storage call and
// before writeErr, so the outcome is recorded whether err is nil or not.
func writeErr(c *gin.Context, err error) {
	kind := apierrors.KindOf(err)
	body := errorBody{Kind: string(kind), Message: err.Error()}
	var apiErr *apierrors.Error
	if e, ok := err.(*apierrors.Error); ok {
		apiErr = e
	}
	if apiErr != nil {
		body.Field = apiErr.Field
		body.Message = apiErr.Message
	}
	c.JSON(statusFor(kind), body)
}
