// Package auth issues and validates operator access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Claims binds a token to one tenant. Operators sign on behalf of subjects
// of that tenant; admins can also edit subjects and enter paper consents.
type Claims struct {
	jwt.RegisteredClaims
	TenantID   string `json:"tid"`
	OperatorID string `json:"oid"`
	Role       Role   `json:"role"`
}

// Principal is the authenticated caller extracted from a token.
type Principal struct {
	TenantID   string
	OperatorID string
	Role       Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func GenerateToken(p Principal, secretKey []byte, validityDuration time.Duration) (string, error) {
	if p.TenantID == "" {
		return "", fmt.Errorf("%w: empty tenant", common.ErrInvalidToken)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.OperatorID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		TenantID:   p.TenantID,
		OperatorID: p.OperatorID,
		Role:       p.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates the signature and expiry and returns the caller.
func ParseToken(tokenString string, secretKey []byte) (Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, common.ErrTokenExpired
		}
		return Principal{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.TenantID == "" {
		return Principal{}, common.ErrInvalidToken
	}

	role := claims.Role
	if role != RoleAdmin {
		role = RoleOperator
	}
	return Principal{TenantID: claims.TenantID, OperatorID: claims.OperatorID, Role: role}, nil
}
