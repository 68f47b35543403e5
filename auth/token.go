package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"support-chat/domain"
)

// CustomClaims defines the structure of the data stored inside the JWT.
// The portal's auth service issues these tokens; the engine only verifies.
type CustomClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenAuthenticator validates handshake tokens signed by the portal.
type TokenAuthenticator struct {
	key []byte
}

func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{key: []byte(secret)}
}

// GenerateToken creates a signed JWT for a specific user.
// Used by the demo client and tests; the portal has its own issuer.
func (a *TokenAuthenticator) GenerateToken(userID, name string, role domain.Role,
	tokenDuration time.Duration) (string, error) {
	expirationTime := time.Now().Add(tokenDuration)

	claims := &CustomClaims{
		UserID: userID,
		Name:   name,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "support-chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.key)
}

// Authenticate parses and validates the signature and expiration of a JWT
// string, then maps the claims to a participant identity.
func (a *TokenAuthenticator) Authenticate(_ context.Context, tokenString string) (domain.Participant, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.key, nil
	})
	if err != nil {
		return domain.Participant{}, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.Participant{}, jwt.ErrSignatureInvalid
	}

	role := domain.RoleCustomer
	if claims.Role == string(domain.RoleStaff) {
		role = domain.RoleStaff
	}
	return domain.Participant{
		ID:   claims.UserID,
		Name: claims.Name,
		Role: role,
	}, nil
}
