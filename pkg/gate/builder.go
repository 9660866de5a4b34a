// Package gate implements the pre-execution authorization checkpoint for
// workflow activities: every intercepted activity call is turned into a
// canonical AuthorizationRequest, decided by an authority provider, and
// forwarded to the next pipeline stage only on an explicit allow.
package gate

import (
	"fmt"

	"github.com/predicate-security/predicate-gate/pkg/canonicalize"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Fixed identifiers for this integration's requests.
const (
	// ResourceActivity classifies every gated call as an engine-activity
	// invocation.
	ResourceActivity = "temporal:activity"
	// EvidenceSource names the integration producing state evidence.
	EvidenceSource = "temporal-worker"
	// EvidenceSchemaVersion tags the canonicalization scheme in use.
	EvidenceSchemaVersion = "v1"
)

// RequestBuilder turns an intercepted call (activity name + positional
// argument list) into a stable AuthorizationRequest. It is a pure function of
// its inputs: no I/O, no shared state.
type RequestBuilder struct{}

// Build assembles the authorization request for one intercepted call.
//
// The state hash is the SHA-256 digest of the canonicalized argument list, so
// structurally equal argument lists always produce the same request body. An
// empty activity name or an argument that cannot be canonicalized yields an
// InvalidRequestError and the call fails closed.
func (RequestBuilder) Build(activity string, args []any, principal, tenantID, sessionID string) (*contracts.AuthorizationRequest, error) {
	if activity == "" {
		return nil, &InvalidRequestError{Detail: "empty activity name"}
	}

	stateHash, err := canonicalize.Digest(args)
	if err != nil {
		return nil, &InvalidRequestError{Detail: fmt.Sprintf("argument list not canonicalizable: %v", err)}
	}

	return &contracts.AuthorizationRequest{
		Principal: contracts.PrincipalRef{
			PrincipalID: principal,
			TenantID:    tenantID,
			SessionID:   sessionID,
		},
		ActionSpec: contracts.ActionSpec{
			Action:   activity,
			Resource: ResourceActivity,
			Intent:   "execute:" + activity,
		},
		StateEvidence: contracts.StateEvidence{
			Source:        EvidenceSource,
			StateHash:     stateHash,
			SchemaVersion: EvidenceSchemaVersion,
		},
		VerificationEvidence: contracts.VerificationEvidence{
			Signals: []contracts.Signal{},
		},
	}, nil
}
