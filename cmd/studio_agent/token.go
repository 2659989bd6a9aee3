package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/config"
	"github.com/jonathan/clinic-studio/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens and the operator password",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed API token (requires JWT_SECRET)",
	RunE:  runTokenIssue,
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash an operator password for STUDIO_ADMIN_PASSWORD_HASH",
	Long:  "Prints a bcrypt hash of the password given by --password, or of the first line of stdin.",
	RunE:  runTokenHash,
}

var (
	tokenSubject  string
	tokenPassword string
)

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", server.OperatorSubject, "Token subject")
	tokenHashCmd.Flags().StringVar(&tokenPassword, "password", "", "Password to hash (default: read from stdin)")

	tokenCmd.AddCommand(tokenIssueCmd, tokenHashCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenIssue(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenSubject)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runTokenHash(cmd *cobra.Command, _ []string) error {
	pw := tokenPassword
	if pw == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password given")
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	if pw == "" {
		return errors.New("password must not be empty")
	}

	passwords, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	}
	hash, err := passwords.HashPassword(pw)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
