package identity

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidationFailed   = "VALIDATION_FAILED"
	TextCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	TextCodeInvalidAdminCode   = "INVALID_ADMIN_CODE"
	TextCodeInvalidCredentials = errors.TextCodeInvalidCredentials
	TextCodeAccountLocked      = errors.TextCodeAccountLocked
	TextCodeAccountNotActive   = errors.TextCodeAccountPending
	TextCodeNotFound           = "NOT_FOUND"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeTokenExpired       = errors.TextCodeTokenExpired
	TextCodeTokenMalformed     = errors.TextCodeTokenMalformed
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeInternal           = "INTERNAL_ERROR"
)

// ErrValidationFailed is returned when a request is missing fields or has malformed ones.
// The returned error carries the field list, see errors.GetValidationErrors.
var ErrValidationFailed = errors.New("validation failed", errors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateAccount is returned when the email, TSC number or admission number is taken.
var ErrDuplicateAccount = errors.New("account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrInvalidAdminCode is returned when an admin registration carries the wrong code.
var ErrInvalidAdminCode = errors.New("invalid admin registration code", errors.CategoryAuthz).
	WithTextCode(TextCodeInvalidAdminCode).
	WithCode(errors.CodeForbidden)

// ErrInvalidCredentials covers both unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountLocked is returned while a lockout window is open.
var ErrAccountLocked = errors.New("account is temporarily locked", errors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(http.StatusLocked)

// ErrAccountNotActive is returned for accounts still waiting for approval.
var ErrAccountNotActive = errors.New("account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeAccountNotActive).
	WithCode(errors.CodeForbidden)

// ErrNotFound is returned when an account id does not resolve.
var ErrNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnauthenticated is returned by the gate when no valid token is present.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned by the gate when the role is not admitted.
var ErrForbidden = errors.New("access denied", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

var ErrTokenInvalid = errors.New("token is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrInternal is the catch-all for unexpected failures
var ErrInternal = errors.New("internal error", errors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be empty", errors.CategoryBadInput).
	WithTextCode(errors.TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned by hashers when the password does not match
var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUnknownDigest is returned when a stored digest matches no known algorithm
var ErrUnknownDigest = errors.New("unknown password digest format", errors.CategoryInternal).
	WithCode(errors.CodeInternal)

// newError returns a copy of base that still matches base with errors.Is and
// carries the given metadata.
func newError(base *errors.Error, meta map[string]any) *errors.Error {
	clone := base.Clone()
	clone.Source = base
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

func internalError(err error, message string) error {
	if err == nil {
		return nil
	}
	var known *errors.Error
	if errors.As(err, &known) {
		return err
	}
	return errors.Wrap(err, errors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(errors.CodeInternal)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	verr := errors.FromOzzoValidation(err, ErrValidationFailed.Message)
	verr.Source = ErrValidationFailed
	return verr.WithTextCode(TextCodeValidationFailed).WithCode(errors.CodeBadRequest)
}

func fieldError(field, message string) error {
	verr := errors.NewValidation(ErrValidationFailed.Message, errors.FieldError{
		Field:   field,
		Message: message,
	})
	verr.Source = ErrValidationFailed
	return verr.WithTextCode(TextCodeValidationFailed).WithCode(errors.CodeBadRequest)
}

func invalidRoleError(role string) error {
	return fieldError("role", "unknown role "+strings.TrimSpace(role))
}

// IsTokenExpiredError reports whether err is an expired token
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError reports whether err is a malformed token
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed)
}

// HTTPStatus maps an error to a response status
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *errors.Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
