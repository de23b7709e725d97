package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DiscoverJWKSURL reads the issuer's discovery document and returns its jwks_uri
func (m *JWKSManager) DiscoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	discoveryURL := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	body, err := m.get(ctx, discoveryURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch discovery document: %w", err)
	}

	var discovery struct {
		Issuer  string `json:"issuer"`
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.Unmarshal(body, &discovery); err != nil {
		return "", fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if discovery.JWKSURI == "" {
		return "", fmt.Errorf("discovery document for %s has no jwks_uri", issuer)
	}
	return discovery.JWKSURI, nil
}
