package shared

import (
	"context"
)

// TenantContext binds the tenant partition and acting user to a command.
// Every engine operation requires one; the HTTP boundary constructs it from
// the authenticated token and the engine trusts it from there on.
type TenantContext struct {
	TenantID      TenantID
	ActorID       UserID
	CorrelationID string
}

// NewTenantContext builds a context binding, rejecting zero tenant or actor
// with ErrUnauthorized.
func NewTenantContext(tenantID TenantID, actorID UserID) (TenantContext, error) {
	if tenantID.IsZero() || actorID.IsZero() {
		return TenantContext{}, ErrUnauthorized
	}
	return TenantContext{TenantID: tenantID, ActorID: actorID}, nil
}

// WithCorrelation returns a copy carrying the caller-supplied correlation ID
// used for command idempotency.
func (tc TenantContext) WithCorrelation(id string) TenantContext {
	tc.CorrelationID = id
	return tc
}

// Validate re-checks the binding; a zero tenant or actor means the boundary
// failed to authenticate the request.
func (tc TenantContext) Validate() error {
	if tc.TenantID.IsZero() || tc.ActorID.IsZero() {
		return ErrUnauthorized
	}
	return nil
}

// Owns reports whether the bound tenant owns the given tenant ID. Commands
// use it to reject cross-tenant access with ErrForbidden.
func (tc TenantContext) Owns(tenantID TenantID) bool {
	return tc.TenantID == tenantID
}

type tenantContextKey struct{}

// WithTenantContext stores the binding on a context.Context.
func WithTenantContext(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tc)
}

// TenantContextFrom extracts the binding from a context.Context.
func TenantContextFrom(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey{}).(TenantContext)
	return tc, ok
}
