package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidate_OK(t *testing.T) {
	err := Validate(loginForm{Email: "user@example.com", Password: "long-enough"})
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(loginForm{Email: "not-an-email", Password: "short"})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at least 8 characters", fields["Password"])
}
