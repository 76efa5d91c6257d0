package identity_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	identity "github.com/elimuconnect/go-identity"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{identity.ErrValidationFailed, http.StatusBadRequest},
		{identity.ErrDuplicateAccount, http.StatusConflict},
		{identity.ErrInvalidAdminCode, http.StatusForbidden},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{identity.ErrAccountLocked, http.StatusLocked},
		{identity.ErrAccountNotActive, http.StatusForbidden},
		{identity.ErrNotFound, http.StatusNotFound},
		{identity.ErrUnauthenticated, http.StatusUnauthorized},
		{identity.ErrForbidden, http.StatusForbidden},
		{identity.ErrInternal, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.HTTPStatus(tt.err))
		})
	}
}

func TestErrorCategories(t *testing.T) {
	assert.Equal(t, goerrors.CategoryValidation, identity.ErrValidationFailed.Category)
	assert.Equal(t, goerrors.CategoryConflict, identity.ErrDuplicateAccount.Category)
	assert.Equal(t, goerrors.CategoryAuth, identity.ErrInvalidCredentials.Category)
	assert.Equal(t, goerrors.CategoryAuthz, identity.ErrForbidden.Category)
	assert.Equal(t, identity.TextCodeAccountLocked, identity.ErrAccountLocked.TextCode)
	assert.Equal(t, identity.TextCodeAccountNotActive, identity.ErrAccountNotActive.TextCode)
}

func TestTokenErrorHelpers(t *testing.T) {
	assert.True(t, identity.IsTokenExpiredError(identity.ErrTokenExpired))
	assert.False(t, identity.IsTokenExpiredError(identity.ErrTokenMalformed))
	assert.True(t, identity.IsMalformedError(identity.ErrTokenMalformed))
	assert.False(t, identity.IsMalformedError(errors.New("other")))
}
