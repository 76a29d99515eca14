package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// minSecretBytes matches the shortest secret the cookie package accepts.
const minSecretBytes = 32

func keygenCmd() *cobra.Command {
	var (
		count  int
		length int
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate cookie secrets",
		Long: `Generate random URL-safe secrets for COOKIE_SECRETS.

To rotate keys, prepend a new secret to the existing list and keep the
old ones until every issued cookie has expired.

Examples:
  sessiond keygen
  sessiond keygen -n 2 --bytes 48`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secrets, err := generateSecrets(count, length)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(secrets, ","))
			return err
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of secrets to generate")
	cmd.Flags().IntVar(&length, "bytes", 64, "Random bytes per secret")

	return cmd
}

func generateSecrets(count, length int) ([]string, error) {
	if count < 1 {
		return nil, errors.New("count must be at least 1")
	}
	if length < minSecretBytes {
		return nil, fmt.Errorf("secrets need at least %d bytes, got %d", minSecretBytes, length)
	}

	secrets := make([]string, count)
	buf := make([]byte, length)
	for i := range secrets {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("read random bytes: %w", err)
		}
		secrets[i] = base64.RawURLEncoding.EncodeToString(buf)
	}
	return secrets, nil
}
