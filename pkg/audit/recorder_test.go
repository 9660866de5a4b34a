package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicate-security/predicate-gate/pkg/authority"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

type failingSink struct{}

func (failingSink) Append(context.Context, *contracts.AuthorizationRequest, *contracts.Decision) (*Entry, error) {
	return nil, errors.New("disk full")
}

func TestRecorder_AppendsDecisions(t *testing.T) {
	log := NewLog(&fakeClock{now: time.Unix(1700000000, 0)})
	provider := authority.NewStatic().Allow("greet")
	recorder := NewRecorder(provider, log)

	req, _ := decisionPair("greet", true)
	decision, err := recorder.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "greet", entries[0].Action)
	assert.True(t, entries[0].Allowed)
}

func TestRecorder_SkipsRecordingOnProviderError(t *testing.T) {
	log := NewLog(nil)
	failing := authority.ProviderFunc(func(context.Context, *contracts.AuthorizationRequest) (*contracts.Decision, error) {
		return nil, errors.New("authority unreachable")
	})
	recorder := NewRecorder(failing, log)

	req, _ := decisionPair("greet", true)
	_, err := recorder.Authorize(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, log.Entries())
}

func TestRecorder_SinkFailureDoesNotChangeDecision(t *testing.T) {
	provider := authority.NewStatic().Deny("deny-dangerous-operations", "delete_all_records")
	recorder := NewRecorder(provider, failingSink{})

	req, _ := decisionPair("delete_all_records", false)
	decision, err := recorder.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "deny-dangerous-operations", decision.ViolatedRule)
}
