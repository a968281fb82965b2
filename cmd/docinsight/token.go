package main

import (
	"crypto/rand"
	"docinsight-backend/config"
	"docinsight-backend/middleware"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token",
	Long: `Issue a bearer token signed with jwt.secret_key (or JWT_SECRET_KEY).

Examples:
  docinsight token --subject frontend --ttl 720h
  docinsight token secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secretKey := config.Cfg.JWT.SecretKey
		if secretKey == "" {
			return errors.New("jwt.secret_key is not configured, generate one with 'docinsight token secret'")
		}

		token, err := middleware.GenerateToken(secretKey, tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var tokenSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a random JWT secret key",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := generateJWTSecret()
		if err != nil {
			return fmt.Errorf("failed to generate secret: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), secret)
		return nil
	},
}

func generateJWTSecret() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "frontend", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.AddCommand(tokenSecretCmd)
}
