package apierrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrapsKnownErrors(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("task %s not found", "t-1")))
	assert.Equal(t, KindConflict, KindOf(Conflict("already superseded")))
	assert.Equal(t, KindInvalidArgument, KindOf(InvalidArgument("bad input")))
	assert.Equal(t, KindPermissionDenied, KindOf(PermissionDenied("nope")))
}

func TestKindOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain error")))
}

func TestInvalidField_SetsFieldAndMessage(t *testing.T) {
	err := InvalidField("title", "must not be empty")
	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "title", apiErr.Field)
	assert.Equal(t, KindInvalidArgument, apiErr.Kind)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("driver failed")
	err := Internal(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestWrap_PreservesKind(t *testing.T) {
	cause := errors.New("constraint violation")
	err := Wrap(KindIntegrityError, cause, "failed to insert %s", "chunk")
	assert.Equal(t, KindIntegrityError, KindOf(err))
}
