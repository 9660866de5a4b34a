// Package authority provides decision providers consumed by the enforcement
// gate: a remote HTTP client, a static in-memory provider for tests and local
// development, and decorators for caching and audit recording.
package authority

import (
	"context"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Provider answers authorization requests. Implementations own their
// transport concerns (pooling, timeouts, retries); the gate performs exactly
// one Authorize call per intercepted invocation and treats any error as a
// hard failure, never as a decision.
type Provider interface {
	Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error)

// Authorize implements Provider.
func (f ProviderFunc) Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	return f(ctx, req)
}
