package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicate-security/predicate-gate/pkg/authority"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// fakeProvider records requests and returns a scripted decision.
type fakeProvider struct {
	decision *contracts.Decision
	err      error
	requests []*contracts.AuthorizationRequest
}

func (p *fakeProvider) Authorize(_ context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.decision, nil
}

// fakeStage records invocations and returns a scripted result.
type fakeStage struct {
	result any
	err    error
	calls  []*ActivityInput
}

func (s *fakeStage) ExecuteActivity(_ context.Context, in *ActivityInput) (any, error) {
	s.calls = append(s.calls, in)
	return s.result, s.err
}

func newTestGate(provider authority.Provider, next Stage) Stage {
	it := NewInterceptor(provider,
		WithPrincipal("test-worker"),
		WithTenantID("test-tenant"),
		WithSessionID("test-session"),
	)
	return it.InterceptActivity(next)
}

func TestExecuteActivity_Allowed(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	next := &fakeStage{result: "activity_result"}
	g := newTestGate(provider, next)

	in := &ActivityInput{ActivityName: "greet", Args: []any{"Alice"}}
	result, err := g.ExecuteActivity(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "activity_result", result)
	require.Len(t, provider.requests, 1, "exactly one authority call per intercepted call")
	require.Len(t, next.calls, 1)
	assert.Same(t, in, next.calls[0], "next stage must receive the original input unmodified")
}

func TestExecuteActivity_Denied(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{
		Allowed:      false,
		Reason:       contracts.ReasonExplicitDeny,
		ViolatedRule: "deny-dangerous-operations",
	}}
	next := &fakeStage{result: "never"}
	g := newTestGate(provider, next)

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: "delete_all_records"})

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, err.Error(), "delete_all_records")
	assert.Contains(t, err.Error(), "explicit_deny")
	assert.Contains(t, err.Error(), "deny-dangerous-operations")
	assert.Empty(t, next.calls, "denied activity must never execute")
}

func TestExecuteActivity_DeniedWithoutViolatedRule(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{
		Allowed: false,
		Reason:  contracts.ReasonNoMatchingPolicy,
	}}
	next := &fakeStage{}
	g := newTestGate(provider, next)

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: "process_data"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_matching_policy")
	assert.NotContains(t, err.Error(), "violated rule")
	assert.Empty(t, next.calls)
}

func TestExecuteActivity_RequestStructure(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	g := newTestGate(provider, &fakeStage{})

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{
		ActivityName: "charge_card",
		Args:         []any{42, "hello"},
	})
	require.NoError(t, err)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "test-worker", req.Principal.PrincipalID)
	assert.Equal(t, "test-tenant", req.Principal.TenantID)
	assert.Equal(t, "test-session", req.Principal.SessionID)
	assert.Equal(t, "charge_card", req.ActionSpec.Action)
	assert.Equal(t, "temporal:activity", req.ActionSpec.Resource)
	assert.Equal(t, "execute:charge_card", req.ActionSpec.Intent)
	assert.Equal(t, "temporal-worker", req.StateEvidence.Source)
	assert.Equal(t, "v1", req.StateEvidence.SchemaVersion)
	assert.Len(t, req.StateEvidence.StateHash, 64)
	assert.Empty(t, req.VerificationEvidence.Signals)
}

func TestExecuteActivity_StateHashKeyOrderIndependent(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	g := newTestGate(provider, &fakeStage{})

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{
		ActivityName: "process_data",
		Args:         []any{map[string]any{"user": "alice", "amount": 100}},
	})
	require.NoError(t, err)

	_, err = g.ExecuteActivity(context.Background(), &ActivityInput{
		ActivityName: "process_data",
		Args:         []any{map[string]any{"amount": 100, "user": "alice"}},
	})
	require.NoError(t, err)

	require.Len(t, provider.requests, 2)
	assert.Equal(t, provider.requests[0].StateEvidence.StateHash, provider.requests[1].StateEvidence.StateHash)
}

func TestExecuteActivity_EmptyActivityName(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true}}
	next := &fakeStage{}
	g := newTestGate(provider, next)

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: ""})

	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, provider.requests, "authority must not be consulted for a malformed call")
	assert.Empty(t, next.calls)
}

func TestExecuteActivity_UnserializableArgument(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true}}
	next := &fakeStage{}
	g := newTestGate(provider, next)

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{
		ActivityName: "stream",
		Args:         []any{make(chan int)},
	})

	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, provider.requests)
	assert.Empty(t, next.calls)
}

func TestExecuteActivity_ProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	next := &fakeStage{}
	g := newTestGate(provider, next)

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: "greet"})

	var unavailable *AuthorityUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, next.calls, "provider failure is neither allow nor deny; wrapped work must not run")
}

func TestExecuteActivity_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	blocking := &cancellingProvider{inner: provider, cancel: cancel}
	next := &fakeStage{}
	g := newTestGate(blocking, next)

	_, err := g.ExecuteActivity(ctx, &ActivityInput{ActivityName: "greet"})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, next.calls, "canceled call must not execute the wrapped activity")
}

// cancellingProvider cancels the context while the decision is in flight,
// then delegates. Simulates the outer call being canceled at the suspension
// point.
type cancellingProvider struct {
	inner  *fakeProvider
	cancel context.CancelFunc
}

func (p *cancellingProvider) Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	p.cancel()
	return p.inner.Authorize(ctx, req)
}

func TestExecuteActivity_NextFailurePropagatesUnchanged(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	boom := errors.New("downstream failed")
	next := &fakeStage{err: boom}
	g := newTestGate(provider, next)

	_, err := g.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: "greet"})

	require.ErrorIs(t, err, boom)
}
