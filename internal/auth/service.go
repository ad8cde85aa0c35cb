package auth

import (
	"errors"
)

// ErrInvalidCredential is returned when a bearer credential cannot be
// resolved to a verified identity.
var ErrInvalidCredential = errors.New("invalid credential")

// Identity is a verified user identity attached to a connection.
type Identity struct {
	UserID   int64
	Username string
}

// Service is the identity gate: it resolves bearer credentials to
// verified identities. Token issuance happens upstream; this service
// only consumes tokens.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new identity gate.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// Verify resolves a bearer credential to a verified identity or fails
// with ErrInvalidCredential. No state is created on failure.
func (s *Service) Verify(credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrInvalidCredential
	}

	claims, err := ValidateToken(s.jwtConfig, credential)
	if err != nil {
		return nil, errors.Join(ErrInvalidCredential, err)
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidCredential
	}

	return &Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
