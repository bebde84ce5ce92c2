package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		kind apierrors.Kind
		want int
	}{
		{apierrors.KindInvalidArgument, http.StatusBadRequest},
		{apierrors.KindNotFound, http.StatusNotFound},
		{apierrors.KindPermissionDenied, http.StatusForbidden},
		{apierrors.KindConflict, http.StatusConflict},
		{apierrors.KindIntegrityError, http.StatusUnprocessableEntity},
		{apierrors.KindResourceExhausted, http.StatusTooManyRequests},
		{apierrors.KindUnavailable, http.StatusServiceUnavailable},
		{apierrors.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.kind), "kind %s", tc.kind)
	}
}
