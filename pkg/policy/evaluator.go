package policy

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Authority evaluates a policy document locally; it implements the
// authority.Provider contract. Rules are compiled once at construction and
// the instance is immutable afterwards, safe for concurrent use.
type Authority struct {
	rules []compiledRule
}

type compiledRule struct {
	rule Rule
	prog cel.Program // nil when the rule has no condition
}

// NewAuthority compiles the document's CEL conditions and returns an
// evaluator. A condition that fails to compile rejects the whole document.
func NewAuthority(doc *Document) (*Authority, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("principal", cel.StringType),
		cel.Variable("tenant", cel.StringType),
		cel.Variable("state_hash", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: CEL environment: %w", err)
	}

	rules := make([]compiledRule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		cr := compiledRule{rule: r}
		if r.Condition != "" {
			ast, issues := env.Compile(r.Condition)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("policy: rule %q condition: %w", r.ID, issues.Err())
			}
			prog, err := env.Program(ast,
				cel.InterruptCheckFrequency(100),
				cel.CostLimit(10000),
			)
			if err != nil {
				return nil, fmt.Errorf("policy: rule %q program: %w", r.ID, err)
			}
			cr.prog = prog
		}
		rules = append(rules, cr)
	}

	return &Authority{rules: rules}, nil
}

// Authorize implements the provider contract: first matching rule wins,
// no match is a default deny. A condition evaluation error is a provider
// failure, not a decision.
func (a *Authority) Authorize(_ context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	input := map[string]any{
		"action":     req.ActionSpec.Action,
		"principal":  req.Principal.PrincipalID,
		"tenant":     req.Principal.TenantID,
		"state_hash": req.StateEvidence.StateHash,
	}

	for _, cr := range a.rules {
		if !matches(cr.rule.Actions, req.ActionSpec.Action) {
			continue
		}
		if len(cr.rule.Principals) > 0 && !matches(cr.rule.Principals, req.Principal.PrincipalID) {
			continue
		}
		if len(cr.rule.Tenants) > 0 && !matches(cr.rule.Tenants, req.Principal.TenantID) {
			continue
		}
		if cr.prog != nil {
			ok, err := evalBool(cr.prog, input)
			if err != nil {
				return nil, fmt.Errorf("policy: rule %q condition eval: %w", cr.rule.ID, err)
			}
			if !ok {
				continue
			}
		}

		if cr.rule.Effect == "allow" {
			return &contracts.Decision{Allowed: true, Reason: contracts.ReasonExplicitAllow}, nil
		}
		return &contracts.Decision{
			Allowed:      false,
			Reason:       contracts.ReasonExplicitDeny,
			ViolatedRule: cr.rule.ID,
		}, nil
	}

	return &contracts.Decision{Allowed: false, Reason: contracts.ReasonDefaultDeny}, nil
}

func matches(list []string, value string) bool {
	for _, entry := range list {
		if entry == "*" || entry == value {
			return true
		}
	}
	return false
}

func evalBool(prog cel.Program, input map[string]any) (bool, error) {
	out, _, err := prog.Eval(input)
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to bool")
	}
	return b, nil
}
