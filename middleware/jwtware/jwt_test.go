package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuconnect/go-identity/middleware/jwtware"
)

type ctxKey struct{}

var errDenied = errors.New("denied")

// acceptOnly lets through only the given token and stores it in the context
func acceptOnly(valid string) jwtware.Authorizer {
	return func(ctx context.Context, token string) (context.Context, error) {
		if token == "" {
			return ctx, jwtware.ErrJWTMissingOrMalformed
		}
		if token != valid {
			return ctx, errDenied
		}
		return context.WithValue(ctx, ctxKey{}, token), nil
	}
}

func newApp(cfg jwtware.Config) *fiber.App {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{DisableStartupMessage: true})
	})

	handler := func(c router.Context) error {
		v, _ := c.Context().Value(ctxKey{}).(string)
		local, _ := c.Locals("principal").(string)
		return c.SendString(v + "|" + local)
	}

	mw := jwtware.New(cfg)
	srv.Router().Get("/p", handler, mw)
	srv.Router().Get("/p/:jwt", handler, mw)

	return srv.WrappedRouter()
}

func errorAsStatus(c router.Context, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return c.Status(router.StatusBadRequest).SendString(err.Error())
	}
	return c.Status(router.StatusForbidden).SendString(err.Error())
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config{
		Authorizer:   acceptOnly("good-token"),
		ErrorHandler: errorAsStatus,
		LocalsValue: func(ctx context.Context) any {
			return ctx.Value(ctxKey{})
		},
	})

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, "good-token|good-token", body(t, res))
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "bearer good-token")
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("missing token reaches authorizer empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})

	t.Run("wrong scheme counts as missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "Basic good-token")
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "Bearer other")
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
		assert.Equal(t, errDenied.Error(), body(t, res))
	})
}

func TestJWTWare_CustomTokenLookup(t *testing.T) {
	app := newApp(jwtware.Config{
		Authorizer:   acceptOnly("good-token"),
		ErrorHandler: errorAsStatus,
		TokenLookup:  "query:token,param:jwt,cookie:jwt_cookie",
	})

	t.Run("query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p?token=good-token", nil)
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("param", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p/good-token", nil)
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.AddCookie(&http.Cookie{Name: "jwt_cookie", Value: "good-token"})
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("header is not consulted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})
}

func TestJWTWare_Filter(t *testing.T) {
	called := false
	app := newApp(jwtware.Config{
		Authorizer: func(ctx context.Context, token string) (context.Context, error) {
			called = true
			return ctx, errDenied
		},
		Filter: func(c router.Context) bool { return true },
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/p", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.False(t, called)
}

func TestJWTWare_DefaultErrorHandler(t *testing.T) {
	app := newApp(jwtware.Config{Authorizer: acceptOnly("good-token")})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/p", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer forged")
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Invalid or expired token", body(t, res))
}

func TestJWTWare_SuccessHandler(t *testing.T) {
	app := newApp(jwtware.Config{
		Authorizer: acceptOnly("good-token"),
		SuccessHandler: func(c router.Context) error {
			return c.Status(http.StatusAccepted).SendString("intercepted")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, res.StatusCode)
	assert.Equal(t, "intercepted", body(t, res))
}

func TestJWTWare_RequiresAuthorizer(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}
