package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

func request(action, principal, tenant string) *contracts.AuthorizationRequest {
	return &contracts.AuthorizationRequest{
		Principal:  contracts.PrincipalRef{PrincipalID: principal, TenantID: tenant},
		ActionSpec: contracts.ActionSpec{Action: action, Intent: "execute:" + action},
	}
}

func mustAuthority(t *testing.T, doc string) *Authority {
	t.Helper()
	parsed, err := Parse([]byte(doc))
	require.NoError(t, err)
	a, err := NewAuthority(parsed)
	require.NoError(t, err)
	return a
}

func TestAuthorize_FirstMatchWins(t *testing.T) {
	a := mustAuthority(t, `
version: 1
rules:
  - id: deny-dangerous-operations
    effect: deny
    actions: [delete_all_records]
  - id: allow-everything
    effect: allow
    actions: ["*"]
`)

	d, err := a.Authorize(context.Background(), request("delete_all_records", "w", ""))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, contracts.ReasonExplicitDeny, d.Reason)
	assert.Equal(t, "deny-dangerous-operations", d.ViolatedRule)

	d, err = a.Authorize(context.Background(), request("greet", "w", ""))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, contracts.ReasonExplicitAllow, d.Reason)
	assert.Empty(t, d.ViolatedRule)
}

func TestAuthorize_DefaultDeny(t *testing.T) {
	a := mustAuthority(t, `
version: 1
rules:
  - id: allow-greet
    effect: allow
    actions: [greet]
`)

	d, err := a.Authorize(context.Background(), request("unlisted", "w", ""))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, contracts.ReasonDefaultDeny, d.Reason)
	assert.Empty(t, d.ViolatedRule)
}

func TestAuthorize_PrincipalAndTenantScoping(t *testing.T) {
	a := mustAuthority(t, `
version: 1
rules:
  - id: allow-tenant-a-workers
    effect: allow
    actions: ["*"]
    principals: [temporal-worker]
    tenants: [tenant-a]
`)

	d, err := a.Authorize(context.Background(), request("greet", "temporal-worker", "tenant-a"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = a.Authorize(context.Background(), request("greet", "temporal-worker", "tenant-b"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = a.Authorize(context.Background(), request("greet", "other-worker", "tenant-a"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestAuthorize_CELCondition(t *testing.T) {
	a := mustAuthority(t, `
version: 1
rules:
  - id: allow-non-admin-intents
    effect: allow
    actions: ["*"]
    condition: '!action.startsWith("admin_")'
`)

	d, err := a.Authorize(context.Background(), request("greet", "w", ""))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = a.Authorize(context.Background(), request("admin_reset", "w", ""))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, contracts.ReasonDefaultDeny, d.Reason, "unmatched condition falls through to default deny")
}

func TestNewAuthority_RejectsBadCondition(t *testing.T) {
	parsed, err := Parse([]byte(`
version: 1
rules:
  - id: broken
    effect: allow
    actions: ["*"]
    condition: 'action =='
`))
	require.NoError(t, err)

	_, err = NewAuthority(parsed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewAuthority_RejectsNonBoolCondition(t *testing.T) {
	parsed, err := Parse([]byte(`
version: 1
rules:
  - id: not-bool
    effect: allow
    actions: ["*"]
    condition: 'action + "x"'
`))
	require.NoError(t, err)

	a, err := NewAuthority(parsed)
	if err != nil {
		// Compile-time rejection is acceptable.
		return
	}
	_, err = a.Authorize(context.Background(), request("greet", "w", ""))
	require.Error(t, err)
}
