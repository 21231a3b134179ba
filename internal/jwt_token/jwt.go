// Package jwttoken verifies identity tokens issued by the upstream identity
// provider. Tokens are HS256-signed and carry the caller's email and whether
// the provider verified it.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/email"
)

// Claims represents the identity token claims.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// JWTService issues and validates identity tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateIdentityToken signs a token for addr. The server never calls it;
// the CLI uses it to mint development tokens and tests use it to drive the
// HTTP surface.
func (s *JWTService) GenerateIdentityToken(addr string, verified bool, expiresIn time.Duration) (string, error) {
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:         addr,
		EmailVerified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken checks signature, expiry, issuer and audience and returns
// the claims with a normalized email. Tokens whose email the provider did
// not verify are rejected.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	claims.Email = email.Normalize(claims.Email)
	if !email.IsValid(claims.Email) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid email")
	}
	if !claims.EmailVerified {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "email not verified")
	}
	return claims, nil
}
