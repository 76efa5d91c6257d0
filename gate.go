package identity

import (
	"context"
	"strings"
	"time"
)

// Gate admits requests carrying a valid token whose role is in the route's
// RoleSet. It never reads the credential store, so a token stays usable until
// it expires even if the account is deleted.
type Gate struct {
	verifier TokenVerifier
	logger   Logger
	clock    func() time.Time
}

func NewGate(verifier TokenVerifier, opts ...Option) *Gate {
	o := buildOptions(opts)
	return &Gate{
		verifier: verifier,
		logger:   o.logger,
		clock:    o.clock,
	}
}

// Authorize verifies token and checks its role against required.
// Missing or unverifiable tokens yield ErrUnauthenticated, a role outside
// required yields ErrForbidden.
func (g *Gate) Authorize(token string, required RoleSet) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, newError(ErrUnauthenticated, map[string]any{"reason": "missing_token"})
	}

	principal, err := g.verifier.Verify(token, g.clock())
	if err != nil {
		g.logger.Debug("gate rejected token: %v", err)
		return Principal{}, newError(ErrUnauthenticated, map[string]any{"reason": tokenFailureReason(err)})
	}

	if !required.Admits(principal.Role) {
		return Principal{}, newError(ErrForbidden, map[string]any{
			"role":     principal.Role,
			"required": required.Strings(),
		})
	}

	return principal, nil
}

// AuthorizeContext runs Authorize and attaches the principal to ctx
func (g *Gate) AuthorizeContext(ctx context.Context, token string, required RoleSet) (context.Context, Principal, error) {
	principal, err := g.Authorize(token, required)
	if err != nil {
		return ctx, Principal{}, err
	}
	return WithPrincipal(ctx, principal), principal, nil
}

// Guard binds the gate to a role set
func (g *Gate) Guard(required RoleSet) func(ctx context.Context, token string) (context.Context, error) {
	return func(ctx context.Context, token string) (context.Context, error) {
		ctx, _, err := g.AuthorizeContext(ctx, token, required)
		return ctx, err
	}
}

func tokenFailureReason(err error) string {
	switch {
	case IsTokenExpiredError(err):
		return "expired"
	case IsMalformedError(err):
		return "malformed"
	default:
		return "invalid"
	}
}
