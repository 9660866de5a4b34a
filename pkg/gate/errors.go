package gate

import (
	"fmt"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// InvalidRequestError reports a malformed intercepted call: an empty activity
// name or an argument list that cannot be canonicalized. It is surfaced
// immediately and the wrapped activity never runs.
type InvalidRequestError struct {
	Detail string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid authorization request: %s", e.Detail)
}

// DeniedError is the terminal error for a denied activity. The message always
// names the activity and the reason code; the violated rule appears only when
// the authority reported one.
type DeniedError struct {
	Activity     string
	Reason       contracts.ReasonCode
	ViolatedRule string
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("zero-trust denial: activity %q not authorized. Reason: %s", e.Activity, e.Reason)
	if e.ViolatedRule != "" {
		msg += fmt.Sprintf(", violated rule: %s", e.ViolatedRule)
	}
	return msg
}

// AuthorityUnavailableError wraps a decision-provider failure (transport
// error, timeout). It is neither an allow nor a deny: the gate surfaces it
// as-is and leaves the fail-open/fail-closed policy to the integrating
// system.
type AuthorityUnavailableError struct {
	Err error
}

func (e *AuthorityUnavailableError) Error() string {
	return fmt.Sprintf("authority unavailable: %v", e.Err)
}

func (e *AuthorityUnavailableError) Unwrap() error {
	return e.Err
}
