package identity

import (
	"errors"

	"github.com/chuna-hq/chuna/internal/tabledoc"
)

var (
	// ErrUserExists is returned by SignUp when the email is already
	// registered, compared case-insensitively.
	ErrUserExists = errors.New("user already registered")
	// ErrInvalidCredentials is returned by SignInWithPassword for both an
	// unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	errEmailPwdRequired = errors.New("email and password are required")
)

func isNotFound(err error) bool {
	return errors.Is(err, tabledoc.ErrRowNotFound)
}
