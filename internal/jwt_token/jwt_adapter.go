package jwttoken

import (
	authmw "gatekeeper/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.IdentityClaims {
	return &authmw.IdentityClaims{
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		TokenID:       claims.ID,
	}
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.IdentityClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
