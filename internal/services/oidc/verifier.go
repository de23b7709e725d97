package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/sculptor/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned for tokens that fail signature or claim validation
var ErrInvalidToken = errors.New("invalid token")

var errKeys = errors.New("failed to get JWKS")

// Verifier verifies JWT tokens against one issuer's key set
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
	jwksURL     string
}

// NewVerifier creates a new JWT verifier. When jwksURL is empty it is discovered from the issuer.
func NewVerifier(ctx context.Context, jwksManager *JWKSManager, issuer, jwksURL string) (*Verifier, error) {
	if jwksURL == "" {
		if issuer == "" {
			return nil, fmt.Errorf("issuer or JWKS URL is required")
		}
		discovered, err := jwksManager.DiscoverJWKSURL(ctx, issuer)
		if err != nil {
			return nil, err
		}
		jwksURL = discovered
	}
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
		jwksURL:     jwksURL,
	}, nil
}

// Verify verifies a JWT token and extracts claims.
// A signature failure refetches the key set once to pick up rotated keys.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := v.parse(ctx, tokenString)
	if err != nil && !errors.Is(err, errKeys) && !jwt.IsValidationError(err) {
		v.jwksManager.Invalidate(v.jwksURL)
		token, err = v.parse(ctx, tokenString)
	}
	if errors.Is(err, errKeys) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
	}
	if !token.Expiration().IsZero() {
		claims.Exp = token.Expiration().Unix()
	}
	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}
	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}

	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	return claims, nil
}

func (v *Verifier) parse(ctx context.Context, tokenString string) (jwt.Token, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errKeys, err)
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(keys), jwt.WithValidate(true)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	return jwt.Parse([]byte(tokenString), opts...)
}
