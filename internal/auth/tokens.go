package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

const issuerName = "fusion-api"

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the signed token payload.
type Claims struct {
	UserID         string                `json:"user_id"`
	Username       string                `json:"username"`
	Agency         models.Agency         `json:"agency"`
	ClearanceLevel models.Classification `json:"clearance_level"`
	Role           string                `json:"role"`
	TokenType      TokenType             `json:"token_type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is the lifetime of access tokens.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// Issue signs a token of the given type for user.
func (i *Issuer) Issue(user models.User, typ TokenType) (string, *Claims, error) {
	ttl := i.accessTTL
	if typ == RefreshToken {
		ttl = i.refreshTTL
	}

	now := i.now()
	claims := &Claims{
		UserID:         user.ID,
		Username:       user.Username,
		Agency:         user.Agency,
		ClearanceLevel: user.ClearanceLevel,
		Role:           user.Role,
		TokenType:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies raw and checks it is of the expected type.
func (i *Issuer) Parse(raw string, typ TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("parse token: invalid")
	}
	if claims.TokenType != typ {
		return nil, fmt.Errorf("parse token: expected %s token, got %q", typ, claims.TokenType)
	}
	return claims, nil
}
