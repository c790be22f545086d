package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"

	"github.com/golang-jwt/jwt/v4"
)

// TokenTTL is how long an issued bearer token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// TokenService is responsible for creating and validating JWTs.
type TokenService struct {
	secretKey []byte
	now       func() time.Time
}

func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenService{secretKey: []byte(secret), now: time.Now}, nil
}

// IssueToken signs {email, iat, exp = now + 7 days}.
func (s *TokenService) IssueToken(email string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"email": models.NormalizeEmail(email),
		"iat":   now.Unix(),
		"exp":   now.Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken returns the email bound to tokenStr. An empty token is
// ErrUnauthenticated; anything else that does not verify is ErrInvalidToken.
func (s *TokenService) VerifyToken(tokenStr string) (string, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return "", apperrors.ErrUnauthenticated
	}

	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "unexpected claims type")
	}
	if _, ok := claims["exp"]; !ok {
		return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "token has no expiry")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "token has no email claim")
	}
	return models.NormalizeEmail(email), nil
}
