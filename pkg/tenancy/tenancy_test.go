package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	tc := Context{TenantID: "tenant-1", Actor: Actor{Type: ActorAgent, ID: "agent-1"}, Roles: []string{"admin"}}
	ctx := WithContext(context.Background(), tc)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, tc, got)
}

func TestFromContext_MissingContext(t *testing.T) {
	_, err := FromContext(context.Background())
	require.Error(t, err)
}

func TestFromContext_EmptyTenantID(t *testing.T) {
	ctx := WithContext(context.Background(), Context{TenantID: ""})
	_, err := FromContext(ctx)
	require.Error(t, err)
}

func TestMustFromContext_PanicsWithoutContext(t *testing.T) {
	assert.Panics(t, func() {
		MustFromContext(context.Background())
	})
}

func TestHasRole(t *testing.T) {
	tc := Context{TenantID: "tenant-1", Roles: []string{"admin", "viewer"}}
	assert.True(t, tc.HasRole("viewer"))
	assert.False(t, tc.HasRole("owner"))
}
