package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/royalbit/daneel/internal/api"
)

func newKeygenCommand() *cobra.Command {
	var keyID string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an injection key secret and its Bearer token",
		Long: `Generates a random HMAC secret for one of the known injection keys
(GROK or CLAUDE) and prints both the secret, to be set as the
<key-id>_INJECT_KEY environment variable on this process, and the
Bearer token derived from it, to be handed to that key's holder.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeygen(cmd, keyID)
		},
	}

	cmd.Flags().StringVar(&keyID, "key-id", "", "key identifier: GROK or CLAUDE")
	_ = cmd.MarkFlagRequired("key-id")

	return cmd
}

func runKeygen(cmd *cobra.Command, keyID string) error {
	switch keyID {
	case "GROK", "CLAUDE":
	default:
		return fmt.Errorf("daneel: key-id must be GROK or CLAUDE, got %q", keyID)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("daneel: generating secret: %w", err)
	}

	token := api.GenerateToken(keyID, secret)
	envVar := keyID + "_INJECT_KEY"

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s=%s\n", envVar, base64.StdEncoding.EncodeToString(secret))
	fmt.Fprintf(out, "Bearer %s\n", token)
	return nil
}
