package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/elimuconnect/go-identity/middleware/jwtware"
)

// Response is the JSON envelope every route answers with
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []errors.FieldError `json:"errors,omitempty"`
}

const headerContentType = "Content-Type"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type HTTPControllerRoutes struct {
	Prefix   string
	Register string
	Login    string
	Me       string
	Pending  string
	Approve  string
	Reject   string
}

type HTTPController struct {
	Logger       Logger
	Routes       *HTTPControllerRoutes
	Registrar    *Registrar
	Approvals    *Approvals
	Auther       *Authenticator
	Gate         *Gate
	Config       Config
	ErrorHandler router.ErrorHandler
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Logger = logger
		return c
	}
}

func WithControllerRoutes(routes *HTTPControllerRoutes) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Routes = routes
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.ErrorHandler = handler
		return c
	}
}

func NewHTTPController(registrar *Registrar, approvals *Approvals, auther *Authenticator, gate *Gate, cfg Config, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger:    defLogger{},
		Registrar: registrar,
		Approvals: approvals,
		Auther:    auther,
		Gate:      gate,
		Config:    cfg,
		Routes: &HTTPControllerRoutes{
			Prefix:   "/api/v1",
			Register: "/auth/register/:role",
			Login:    "/auth/login",
			Me:       "/auth/me",
			Pending:  "/admin/users/pending",
			Approve:  "/admin/users/:id/approve",
			Reject:   "/admin/users/:id/reject",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	c.Logger = normalizeLogger(c.Logger)
	if c.ErrorHandler == nil {
		c.ErrorHandler = c.respondError
	}

	return c
}

// RegisterRoutes mounts the identity routes on app
func RegisterRoutes[T any](app router.Router[T], controller *HTTPController) {
	api := app.Group(controller.Routes.Prefix)
	ip := controller.clientIP

	api.Post(controller.Routes.Register, controller.Register, ip).SetName("auth.register")
	api.Post(controller.Routes.Login, controller.Login, ip).SetName("auth.login")
	api.Get(controller.Routes.Me, controller.Me, ip, controller.Protect(AnyRole)).SetName("auth.me")

	admin := controller.Protect(AdminOnly)
	api.Get(controller.Routes.Pending, controller.ListPending, ip, admin).SetName("admin.pending")
	api.Post(controller.Routes.Approve, controller.Approve, ip, admin).SetName("admin.approve")
	api.Post(controller.Routes.Reject, controller.Reject, ip, admin).SetName("admin.reject")
}

// Protect returns a middleware admitting only tokens whose role is in required.
// The verified Principal is available from the request context and from
// Locals under Config.ContextKey.
func (a *HTTPController) Protect(required RoleSet) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		Authorizer:   a.Gate.Guard(required),
		ErrorHandler: a.ErrorHandler,
		ContextKey:   a.Config.ContextKey,
		TokenLookup:  a.Config.TokenLookup,
		AuthScheme:   a.Config.AuthScheme,
		LocalsValue: func(ctx context.Context) any {
			principal, _ := PrincipalFromContext(ctx)
			return principal
		},
	})
}

func (a *HTTPController) clientIP(next router.HandlerFunc) router.HandlerFunc {
	return func(c router.Context) error {
		c.SetContext(WithClientIP(c.Context(), c.IP()))
		return next(c)
	}
}

func (a *HTTPController) Register(c router.Context) error {
	role, err := ParseRole(strings.ToUpper(c.Param("role")))
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	req := newRegistrationRequest(role)
	if err := c.Bind(req); err != nil {
		return a.ErrorHandler(c, malformedBody(err))
	}

	account, err := a.Registrar.Register(c.Context(), req)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	message := "Registration submitted for approval"
	if account.Active {
		message = "Registration successful"
	}

	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    account,
	})
}

func (a *HTTPController) Login(c router.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return a.ErrorHandler(c, malformedBody(err))
	}

	token, err := a.Auther.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, Response{
		Success: true,
		Message: "Login successful",
		Data:    token,
	})
}

func (a *HTTPController) Me(c router.Context) error {
	principal, ok := PrincipalFromContext(c.Context())
	if !ok {
		return a.ErrorHandler(c, newError(ErrUnauthenticated, nil))
	}
	return c.JSON(router.StatusOK, Response{Success: true, Data: principal})
}

func (a *HTTPController) ListPending(c router.Context) error {
	page, err := pageQuery(c)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	result, err := a.Approvals.ListPending(c.Context(), page)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, Response{Success: true, Data: result})
}

func (a *HTTPController) Approve(c router.Context) error {
	id, err := accountIDParam(c)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	account, err := a.Approvals.Approve(c.Context(), id)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, Response{
		Success: true,
		Message: "Account approved",
		Data:    account,
	})
}

func (a *HTTPController) Reject(c router.Context) error {
	id, err := accountIDParam(c)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	// the reason is optional, so is the body
	var req RejectRequest
	if c.GetString(headerContentType, "") != "" {
		if err := c.Bind(&req); err != nil {
			return a.ErrorHandler(c, malformedBody(err))
		}
	}

	if err := a.Approvals.Reject(c.Context(), id, req.Reason); err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, Response{Success: true, Message: "Account rejected"})
}

func (a *HTTPController) respondError(c router.Context, err error) error {
	status := HTTPStatus(err)

	res := Response{Success: false, Message: err.Error()}

	var e *errors.Error
	if errors.As(err, &e) {
		res.Message = e.Message
		res.Errors = e.ValidationErrors
	}

	if status >= router.StatusInternalServerError {
		a.Logger.Error("%s %s failed: %v", c.Method(), c.Path(), err)
		res.Message = ErrInternal.Message
		res.Errors = nil
	}

	return c.JSON(status, res)
}

func newRegistrationRequest(role Role) RegistrationRequest {
	switch role {
	case RoleAdmin:
		return &AdminRegistration{}
	case RoleTeacher:
		return &TeacherRegistration{}
	case RoleStudent:
		return &StudentRegistration{}
	case RoleParent:
		return &ParentRegistration{}
	default:
		return nil
	}
}

func accountIDParam(c router.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fieldError("id", "must be a valid account id")
	}
	return id, nil
}

func pageQuery(c router.Context) (Page, error) {
	var page Page
	for name, dst := range map[string]*int{"page": &page.Number, "size": &page.Size} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Page{}, fieldError(name, "must be a number")
		}
		*dst = n
	}
	return page, nil
}

func malformedBody(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "request body is not valid JSON").
		WithTextCode(TextCodeValidationFailed).
		WithCode(errors.CodeBadRequest)
}
