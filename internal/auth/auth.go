// Package auth authorizes privileged operations — today just the admin
// user-security reset. The credential is always injected (config, env, or a
// token table); nothing here ships a default secret.
package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("missing admin token")
	ErrInvalidToken = errors.New("invalid admin token")
	ErrDisabled     = errors.New("admin operations are disabled")
)

// Authorizer validates an admin credential for privileged operations.
type Authorizer interface {
	Authorize(ctx context.Context, token string) error
}

// StaticAuthorizer checks tokens against one injected bcrypt hash. An empty
// hash disables admin operations entirely rather than allowing them.
type StaticAuthorizer struct {
	tokenHash string
}

func NewStaticAuthorizer(tokenHash string) *StaticAuthorizer {
	return &StaticAuthorizer{tokenHash: tokenHash}
}

func (a *StaticAuthorizer) Authorize(_ context.Context, token string) error {
	if a.tokenHash == "" {
		return ErrDisabled
	}
	if token == "" {
		return ErrMissingToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.tokenHash), []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// HashToken produces a bcrypt hash suitable for the static authorizer's
// configuration or the admin token table.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
