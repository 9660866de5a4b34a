package gate

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/predicate-security/predicate-gate/pkg/authority"
	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// ActivityInput is the intercepted unit-of-work invocation: the activity's
// identifying name and its positional argument list. The gate never mutates
// it; on allow, the exact same input is handed to the next stage.
type ActivityInput struct {
	ActivityName string
	Args         []any
}

// Stage is the host-pipeline contract: anything that accepts the intercepted
// call input and returns a result or failure. The gate is one Stage composed
// in front of another.
type Stage interface {
	ExecuteActivity(ctx context.Context, in *ActivityInput) (any, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(ctx context.Context, in *ActivityInput) (any, error)

// ExecuteActivity implements Stage.
func (f StageFunc) ExecuteActivity(ctx context.Context, in *ActivityInput) (any, error) {
	return f(ctx, in)
}

// EnforcementGate wraps the next pipeline stage with a mandatory
// authorization check. All fields are fixed at construction; the gate holds
// no per-call state and is safe for concurrent use.
type EnforcementGate struct {
	next      Stage
	provider  authority.Provider
	builder   RequestBuilder
	principal string
	tenantID  string
	sessionID string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// ExecuteActivity decides and enforces one intercepted call.
//
// Exactly one provider call is made per invocation. The wrapped activity
// executes if and only if the provider returns Allowed == true; a denial,
// a build failure, a provider failure, or context cancellation all terminate
// the call before the next stage is reached. The gate performs no retries.
func (g *EnforcementGate) ExecuteActivity(ctx context.Context, in *ActivityInput) (any, error) {
	req, err := g.builder.Build(in.ActivityName, in.Args, g.principal, g.tenantID, g.sessionID)
	if err != nil {
		return nil, err
	}

	decision, err := g.decide(ctx, req)
	if err != nil {
		return nil, err
	}

	if !decision.Allowed {
		g.logger.WarnContext(ctx, "activity denied",
			"activity", in.ActivityName,
			"reason", string(decision.Reason),
			"violated_rule", decision.ViolatedRule,
		)
		return nil, &DeniedError{
			Activity:     in.ActivityName,
			Reason:       decision.Reason,
			ViolatedRule: decision.ViolatedRule,
		}
	}

	return g.next.ExecuteActivity(ctx, in)
}

// decide performs the single authority call. This is the gate's only
// suspension point; cancellation of the outer context surfaces here and the
// wrapped activity never runs.
func (g *EnforcementGate) decide(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	ctx, span := g.tracer.Start(ctx, "predicate.authorize",
		trace.WithAttributes(
			attribute.String("predicate.action", req.ActionSpec.Action),
			attribute.String("predicate.principal", req.Principal.PrincipalID),
			attribute.String("predicate.state_hash", req.StateEvidence.StateHash),
		),
	)
	defer span.End()

	decision, err := g.provider.Authorize(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authority call failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &AuthorityUnavailableError{Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	span.SetAttributes(
		attribute.Bool("predicate.allowed", decision.Allowed),
		attribute.String("predicate.reason", string(decision.Reason)),
	)
	return decision, nil
}

func gateTracer() trace.Tracer {
	return otel.Tracer("predicate-gate")
}
