package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/predicate-security/predicate-gate/pkg/authority"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// instrumentedProvider records decision metrics around an inner provider.
type instrumentedProvider struct {
	inner authority.Provider
	obs   *Provider
}

// Instrument wraps a decision provider so every Authorize call feeds the
// decision counters and latency histogram. On a disabled observability
// provider the wrapper delegates without recording.
func (p *Provider) Instrument(inner authority.Provider) authority.Provider {
	return &instrumentedProvider{inner: inner, obs: p}
}

// Authorize implements authority.Provider.
func (ip *instrumentedProvider) Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	attrs := []attribute.KeyValue{
		attribute.String("predicate.action", req.ActionSpec.Action),
		attribute.String("predicate.principal", req.Principal.PrincipalID),
	}

	start := time.Now()
	decision, err := ip.inner.Authorize(ctx, req)
	if err != nil {
		ip.obs.RecordAuthorityError(ctx, err, attrs...)
		return nil, err
	}

	ip.obs.RecordDecision(ctx, decision, time.Since(start), attrs...)
	return decision, nil
}
