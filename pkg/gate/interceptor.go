package gate

import (
	"log/slog"

	"github.com/predicate-security/predicate-gate/pkg/authority"
)

// DefaultPrincipal is the principal ID used when none is configured.
const DefaultPrincipal = "temporal-worker"

// Interceptor is the top-level factory composed into a worker pipeline. It
// holds the fixed identity and the authority provider; InterceptActivity is
// called once per pipeline setup, not once per activity call.
type Interceptor struct {
	provider  authority.Provider
	principal string
	tenantID  string
	sessionID string
	logger    *slog.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithPrincipal overrides the default principal ID.
func WithPrincipal(principal string) Option {
	return func(it *Interceptor) { it.principal = principal }
}

// WithTenantID scopes requests to a tenant.
func WithTenantID(tenantID string) Option {
	return func(it *Interceptor) { it.tenantID = tenantID }
}

// WithSessionID attaches a correlation session ID to every request.
func WithSessionID(sessionID string) Option {
	return func(it *Interceptor) { it.sessionID = sessionID }
}

// WithLogger replaces the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(it *Interceptor) { it.logger = logger }
}

// NewInterceptor creates the interceptor factory.
func NewInterceptor(provider authority.Provider, opts ...Option) *Interceptor {
	it := &Interceptor{
		provider:  provider,
		principal: DefaultPrincipal,
		logger:    slog.Default().With("component", "predicate-gate"),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// InterceptActivity wraps the next stage with an EnforcementGate carrying the
// factory's fixed identity.
func (it *Interceptor) InterceptActivity(next Stage) Stage {
	return &EnforcementGate{
		next:      next,
		provider:  it.provider,
		principal: it.principal,
		tenantID:  it.tenantID,
		sessionID: it.sessionID,
		logger:    it.logger,
		tracer:    gateTracer(),
	}
}
