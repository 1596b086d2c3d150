// Package auth issues and verifies patient access tokens and hashes
// credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// Gate is the trust boundary between callers and the booking services: an
// identity returned by Verify is taken at face value downstream.
type Gate interface {
	Issue(ctx context.Context, id model.Identity) (string, error)
	Verify(ctx context.Context, token string) (model.Identity, error)
	Revoke(ctx context.Context, token string) error
}

// Claims is the JWT payload. The id/email pair mirrors the identity.
type Claims struct {
	jwt.RegisteredClaims
	PatientID int64  `json:"id"`
	Email     string `json:"email"`
}

// JWTGate implements Gate with HMAC-SHA256 signed tokens.
type JWTGate struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked Revoker
	now     func() time.Time
}

// NewJWTGate returns a gate signing with secret. Tokens expire after ttl.
func NewJWTGate(secret string, ttl time.Duration, revoked Revoker) *JWTGate {
	if revoked == nil {
		revoked = NewMemoryRevoker()
	}
	return &JWTGate{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  "clinic-booking",
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs an HS256 token carrying id, valid for the gate's TTL.
func (g *JWTGate) Issue(_ context.Context, id model.Identity) (string, error) {
	now := g.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    g.issuer,
			Subject:   strconv.FormatInt(id.PatientID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
		PatientID: id.PatientID,
		Email:     id.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (g *JWTGate) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.PatientID <= 0 || claims.ID == "" {
		return nil, errors.New("token is missing identity claims")
	}
	return claims, nil
}

// Verify checks signature, issuer, expiry and revocation. Every rejection is
// reported as apperror.ErrUnauthorized.
func (g *JWTGate) Verify(ctx context.Context, token string) (model.Identity, error) {
	claims, err := g.parse(token)
	if err != nil {
		return model.Identity{}, &apperror.Error{
			Kind: apperror.KindUnauthenticated, Code: apperror.ErrUnauthorized.Code,
			Message: apperror.ErrUnauthorized.Message, Err: err,
		}
	}
	revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return model.Identity{}, apperror.ErrUnauthorized.WithMessage("access token has been revoked")
	}
	return model.Identity{PatientID: claims.PatientID, Email: claims.Email}, nil
}

// Revoke blocks token until it would have expired anyway.
func (g *JWTGate) Revoke(ctx context.Context, token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return apperror.ErrUnauthorized
	}
	return g.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
