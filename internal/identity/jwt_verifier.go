package identity

import (
	"context"
	"fmt"

	"edskill-hub/internal/pkg/jwtutil"
)

// JWTVerifier accepts HS256 tokens issued by this service's auth endpoints.
type JWTVerifier struct {
	secret string
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := jwtutil.ParseToken(v.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
