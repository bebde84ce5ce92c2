// Package tenancy carries the verified (tenant_id, actor) pair that
// authentication middleware attaches to every inbound call. Every storage
// and service-layer primitive takes a context produced by this package; a
// tenant-less call is a programming error (§4.1 of the spec).
package tenancy

import (
	"context"
	"fmt"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
)

// ActorType mirrors the Event.actor.type enum.
type ActorType string

const (
	ActorHuman ActorType = "human"
	ActorAgent ActorType = "agent"
	ActorTool  ActorType = "tool"
)

// Actor identifies who is making the call.
type Actor struct {
	Type ActorType
	ID   string
}

// Context bundles the verified caller identity for one request.
type Context struct {
	TenantID string
	Actor    Actor
	Roles    []string
}

func (c Context) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithContext attaches a verified tenancy.Context to ctx. Called exactly
// once, by the authentication middleware, before the core is invoked.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext retrieves the tenancy.Context. It is a programming error to
// call any core operation without one — callers should treat the returned
// error as non-recoverable (§4.1: "a tenant-less call is a programming error").
func FromContext(ctx context.Context) (Context, error) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	if !ok || tc.TenantID == "" {
		return Context{}, apierrors.Internal(fmt.Errorf("tenancy: no verified tenant context on this call"))
	}
	return tc, nil
}

// MustFromContext panics if ctx carries no tenancy.Context. Reserved for
// paths that already validated tenancy upstream (e.g. within a single
// request's already-authenticated call chain) and want a hard failure on
// programmer error rather than a propagated apierrors.Internal.
func MustFromContext(ctx context.Context) Context {
	tc, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return tc
}
