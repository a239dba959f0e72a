package services

import (
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// TokenService validates the actor tokens minted by the external identity
// service and, for tooling and tests, can mint them itself. The engine
// stores no users and no credentials; a token is just the attribution of a
// request to a verified actor (and whether that actor is an admin).
type TokenService struct {
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(jwtSecret string) *TokenService {
	return &TokenService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// IssueToken mints a signed actor token. Production tokens come from the
// identity service; this exists for local development and tests.
func (s *TokenService) IssueToken(userID string, isAdmin bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *TokenService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
