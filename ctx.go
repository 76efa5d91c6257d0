package identity

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}
var clientIPCtxKey = &contextKey{"client_ip"}

type contextKey struct {
	name string
}

// WithPrincipal attaches the verified caller to the context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext returns the caller attached by the gate
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}

// WithClientIP records the remote address of the request
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPCtxKey, ip)
}

// ClientIPFromContext returns the remote address or an empty string
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPCtxKey).(string)
	return ip
}
