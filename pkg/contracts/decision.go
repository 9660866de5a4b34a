package contracts

// ReasonCode is the enumerated cause attached to every decision.
type ReasonCode string

// Reason code constants.
const (
	ReasonExplicitAllow    ReasonCode = "explicit_allow"
	ReasonExplicitDeny     ReasonCode = "explicit_deny"
	ReasonDefaultDeny      ReasonCode = "default_deny"
	ReasonNoMatchingPolicy ReasonCode = "no_matching_policy"
)

// Decision is the authority's response to an AuthorizationRequest.
// ViolatedRule identifies the policy rule that triggered a denial, when the
// authority reports one.
type Decision struct {
	Allowed      bool       `json:"allowed"`
	Reason       ReasonCode `json:"reason"`
	ViolatedRule string     `json:"violated_rule,omitempty"`
}
