package authority

import (
	"context"
	"sync"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Static is an in-memory provider with explicit per-action rules, intended
// for tests and local development. Unlisted actions are denied with
// default_deny.
type Static struct {
	mu    sync.RWMutex
	rules map[string]staticRule
}

type staticRule struct {
	allowed bool
	ruleID  string
}

// NewStatic creates an empty (deny-everything) static provider.
func NewStatic() *Static {
	return &Static{rules: make(map[string]staticRule)}
}

// Allow marks actions as explicitly allowed.
func (s *Static) Allow(actions ...string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.rules[a] = staticRule{allowed: true}
	}
	return s
}

// Deny marks actions as explicitly denied by the named rule.
func (s *Static) Deny(ruleID string, actions ...string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.rules[a] = staticRule{allowed: false, ruleID: ruleID}
	}
	return s
}

// Authorize implements Provider.
func (s *Static) Authorize(_ context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	s.mu.RLock()
	rule, ok := s.rules[req.ActionSpec.Action]
	s.mu.RUnlock()

	if !ok {
		return &contracts.Decision{Allowed: false, Reason: contracts.ReasonDefaultDeny}, nil
	}
	if rule.allowed {
		return &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}, nil
	}
	return &contracts.Decision{
		Allowed:      false,
		Reason:       contracts.ReasonExplicitDeny,
		ViolatedRule: rule.ruleID,
	}, nil
}
