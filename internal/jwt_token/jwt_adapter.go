package jwttoken

import (
	"charak/internal/platform/middleware"
)

// ToMiddlewareClaims converts service claims into the transport view.
func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	return &middleware.JWTClaims{
		Subject:  claims.Subject,
		Role:     claims.Role,
		ClinicID: claims.ClinicID,
		JTI:      claims.ID,
	}
}

// JWTServiceAdapter bridges JWTService to middleware.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
