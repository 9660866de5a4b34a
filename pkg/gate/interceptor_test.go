package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

func TestNewInterceptor_Defaults(t *testing.T) {
	it := NewInterceptor(&fakeProvider{})

	assert.Equal(t, DefaultPrincipal, it.principal)
	assert.Empty(t, it.tenantID)
	assert.Empty(t, it.sessionID)
}

func TestNewInterceptor_Options(t *testing.T) {
	it := NewInterceptor(&fakeProvider{},
		WithPrincipal("custom-worker"),
		WithTenantID("tenant-123"),
		WithSessionID("session-456"),
	)

	assert.Equal(t, "custom-worker", it.principal)
	assert.Equal(t, "tenant-123", it.tenantID)
	assert.Equal(t, "session-456", it.sessionID)
}

func TestInterceptActivity_FullChain(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	it := NewInterceptor(provider, WithPrincipal("integration-worker"))

	next := &fakeStage{result: "success"}
	stage := it.InterceptActivity(next)

	result, err := stage.ExecuteActivity(context.Background(), &ActivityInput{
		ActivityName: "greet",
		Args:         []any{"arg1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "integration-worker", provider.requests[0].Principal.PrincipalID)
}

func TestInterceptActivity_GatesAreIndependent(t *testing.T) {
	provider := &fakeProvider{decision: &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}}
	it := NewInterceptor(provider)

	g1 := it.InterceptActivity(&fakeStage{result: 1})
	g2 := it.InterceptActivity(&fakeStage{result: 2})

	r1, err := g1.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: "a"})
	require.NoError(t, err)
	r2, err := g2.ExecuteActivity(context.Background(), &ActivityInput{ActivityName: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, r1)
	assert.Equal(t, 2, r2)
}
