package jwttoken

import (
	"legado/internal/platform/middleware"
)

// JWTServiceAdapter adapts JWTService to the middleware.WalletValidator
// interface without coupling the token package to HTTP concerns.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.WalletClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.WalletClaims{
		Wallet:  claims.Wallet,
		CivilID: claims.CivilID,
	}, nil
}
