// Package identity resolves bearer tokens into verified callers.
package identity

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid token")

type Identity struct {
	UserID string
	Email  string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
