package commands

import (
	"fmt"
	"time"

	"github.com/benvon/sculptor/internal/services/oidc"
	"github.com/spf13/cobra"
)

func newCheckOIDCCmd() *cobra.Command {
	var (
		issuer  string
		jwksURL string
	)

	cmd := &cobra.Command{
		Use:   "check-oidc",
		Short: "Test OIDC configuration",
		Long:  "Resolve the issuer's key set the same way the API server does and report what was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if issuer == "" && jwksURL == "" {
				return fmt.Errorf("--issuer or --jwks-url is required")
			}
			out := cmd.OutOrStdout()
			manager := oidc.NewJWKSManager(nil, time.Minute)

			if jwksURL == "" {
				_, _ = fmt.Fprintf(out, "Discovering JWKS URL for issuer: %s\n", issuer)
				discovered, err := manager.DiscoverJWKSURL(cmd.Context(), issuer)
				if err != nil {
					return fmt.Errorf("discovery failed: %w", err)
				}
				jwksURL = discovered
				_, _ = fmt.Fprintln(out, "✓ Discovery endpoint is accessible")
			}

			_, _ = fmt.Fprintf(out, "Fetching JWKS: %s\n", jwksURL)
			set, err := manager.GetJWKS(cmd.Context(), jwksURL)
			if err != nil {
				return fmt.Errorf("failed to fetch JWKS: %w", err)
			}
			if set.Len() == 0 {
				return fmt.Errorf("JWKS at %s contains no keys", jwksURL)
			}
			_, _ = fmt.Fprintf(out, "✓ JWKS contains %d key(s)\n", set.Len())

			_, _ = fmt.Fprintln(out, "\n✓ OIDC configuration test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "Issuer URL (defaults to discovery via /.well-known/openid-configuration)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL, skipping discovery")
	return cmd
}
