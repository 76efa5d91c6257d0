package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and verifies HS256 session tokens
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   string
	logger     Logger
}

// NewTokenService creates a TokenService from configuration
func NewTokenService(cfg Config, logger Logger) *TokenService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		ttl:        ttl,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		logger:     normalizeLogger(logger),
	}
}

// TTL returns the token lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for the account valid from now until now + TTL.
// The exp claim has whole second precision so ExpiresAt is rounded up.
func (ts *TokenService) Issue(accountID uuid.UUID, role Role, now time.Time) (IssuedToken, error) {
	if accountID == uuid.Nil {
		return IssuedToken{}, errors.New("account id is required", errors.CategoryBadInput)
	}
	if !role.IsValid() {
		return IssuedToken{}, errors.New("valid role is required", errors.CategoryBadInput)
	}

	issuedAt := now.UTC()
	expiresAt := ceilSecond(issuedAt.Add(ts.ttl))

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      accountID.String(),
		UserRole: role,
	}
	if ts.audience != "" {
		claims.Audience = jwt.ClaimStrings{ts.audience}
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		Token:     signed,
		AccountID: accountID,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// SignClaims signs the claims with the configured key
func (ts *TokenService) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", internalError(err, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify checks signature, expiry, issuer and audience of token as seen at now.
// It returns ErrTokenExpired, ErrTokenMalformed or ErrTokenInvalid on failure.
func (ts *TokenService) Verify(tokenString string, now time.Time) (Principal, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		// exp is exclusive in jwt; a token is still valid at exactly ExpiresAt
		jwt.WithTimeFunc(func() time.Time { return now.Add(-time.Nanosecond) }),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if ts.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token service: unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return Principal{}, classifyTokenError(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return Principal{}, newError(ErrTokenInvalid, nil)
	}

	accountID, err := uuid.Parse(claims.UserID())
	if err != nil || claims.UserID() != claims.Subject() {
		return Principal{}, newError(ErrTokenInvalid, map[string]any{"claim": "sub"})
	}

	if !claims.UserRole.IsValid() {
		return Principal{}, newError(ErrTokenInvalid, map[string]any{"claim": "role"})
	}

	return Principal{
		AccountID: accountID,
		Role:      claims.UserRole,
		ExpiresAt: claims.Expires(),
	}, nil
}

func ceilSecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Second)
	if truncated.Before(t) {
		return truncated.Add(time.Second)
	}
	return truncated
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(ErrTokenExpired, nil)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return newError(ErrTokenMalformed, map[string]any{"reason": err.Error()})
	default:
		return newError(ErrTokenInvalid, map[string]any{"reason": err.Error()})
	}
}
