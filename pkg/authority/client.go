package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// authorizePath is the authority service's decision endpoint.
const authorizePath = "/v1/authorize"

// apiVersionHeader carries the authority's API version in responses.
const apiVersionHeader = "X-Predicate-Api-Version"

// DefaultAPIVersionConstraint is the authority API range this client speaks.
const DefaultAPIVersionConstraint = ">= 1.0.0, < 2.0.0"

// ClientConfig configures the remote authority client.
type ClientConfig struct {
	BaseURL string
	// SigningKey signs the HS256 service token attached to every request.
	SigningKey []byte
	Issuer     string
	Audience   string
	Timeout    time.Duration
	// Client-side rate limit for decision calls. Zero disables limiting.
	RPS   int
	Burst int
	// APIVersionConstraint overrides DefaultAPIVersionConstraint.
	APIVersionConstraint string
}

// Client is the HTTP Provider for a remote Predicate Authority service.
// It is safe for concurrent use; every field is fixed at construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	signingKey []byte
	issuer     string
	audience   string
	limiter    *rate.Limiter
	constraint *semver.Constraints
	logger     *slog.Logger
}

// NewClient creates a remote authority client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("authority: base URL required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("authority: signing key required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	constraintExpr := cfg.APIVersionConstraint
	if constraintExpr == "" {
		constraintExpr = DefaultAPIVersionConstraint
	}
	constraint, err := semver.NewConstraint(constraintExpr)
	if err != nil {
		return nil, fmt.Errorf("authority: invalid API version constraint: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = cfg.RPS
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "predicate-gate"
	}
	audience := cfg.Audience
	if audience == "" {
		audience = "predicate-authority"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		signingKey: cfg.SigningKey,
		issuer:     issuer,
		audience:   audience,
		limiter:    limiter,
		constraint: constraint,
		logger:     slog.Default().With("component", "authority-client"),
	}, nil
}

// Authorize sends the request to the authority and returns its decision.
// Transport failures and non-2xx responses are returned as errors, never
// mapped to a deny.
func (c *Client) Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("authority: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authorizePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("authority: build request: %w", err)
	}

	token, err := c.serviceToken(req.Principal.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("authority: sign service token: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("authority: decision call failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkAPIVersion(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.problemError(resp)
	}

	var decision contracts.Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("authority: decode decision: %w", err)
	}
	return &decision, nil
}

// serviceToken mints a short-lived HS256 token identifying this worker.
func (c *Client) serviceToken(principal string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   principal,
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
}

// checkAPIVersion rejects responses from an authority outside the supported
// API range. A missing header is tolerated for older deployments.
func (c *Client) checkAPIVersion(resp *http.Response) error {
	raw := resp.Header.Get(apiVersionHeader)
	if raw == "" {
		return nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("authority: unparseable API version %q: %w", raw, err)
	}
	if !c.constraint.Check(v) {
		return fmt.Errorf("authority: unsupported API version %s (want %s)", v, c.constraint)
	}
	return nil
}

// problemDetail is the RFC 7807 body the authority returns on errors.
type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (c *Client) problemError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var problem problemDetail
	if err := json.Unmarshal(raw, &problem); err == nil && problem.Title != "" {
		return fmt.Errorf("authority: %s (status %d): %s", problem.Title, resp.StatusCode, problem.Detail)
	}
	return fmt.Errorf("authority: unexpected status %d", resp.StatusCode)
}
