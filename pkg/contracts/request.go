// Package contracts defines the wire types exchanged between the enforcement
// gate and an authority-decision provider. All types are immutable by
// convention: a request is built once per intercepted call and never mutated.
package contracts

// PrincipalRef identifies the caller on whose behalf an action is attempted.
// PrincipalID is required; TenantID and SessionID scope multi-tenant
// deployments and request correlation respectively.
type PrincipalRef struct {
	PrincipalID string `json:"principal_id"`
	TenantID    string `json:"tenant_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// ActionSpec identifies the operation being gated. All fields are derived
// deterministically from the intercepted invocation; no caller input.
type ActionSpec struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Intent   string `json:"intent"`
}

// StateEvidence is a tamper-evident summary of the call's arguments.
// StateHash is the SHA-256 hex digest of the canonicalized argument list.
type StateEvidence struct {
	Source        string `json:"source"`
	StateHash     string `json:"state_hash"`
	SchemaVersion string `json:"schema_version"`
}

// Signal is an additional signed proof attached to a request. Reserved for
// future verification schemes; the gate itself attaches none.
type Signal struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// VerificationEvidence carries optional signed proofs. Empty in this
// integration.
type VerificationEvidence struct {
	Signals []Signal `json:"signals"`
}

// AuthorizationRequest is the sole unit of information sent to the authority.
type AuthorizationRequest struct {
	Principal            PrincipalRef         `json:"principal"`
	ActionSpec           ActionSpec           `json:"action_spec"`
	StateEvidence        StateEvidence        `json:"state_evidence"`
	VerificationEvidence VerificationEvidence `json:"verification_evidence"`
}
