package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// PasswordConfig guards token issuance over HTTP with the operator password.
type PasswordConfig struct {
	BcryptCost int
	// AdminHash is the bcrypt hash of the operator password. Empty disables
	// password login.
	AdminHash string
}

// NewPasswordConfig reads BCRYPT_COST (default: 12) and STUDIO_ADMIN_PASSWORD_HASH.
func NewPasswordConfig() (*PasswordConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &PasswordConfig{
		BcryptCost: cost,
		AdminHash:  os.Getenv(EnvPrefix + "_ADMIN_PASSWORD_HASH"),
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-14)", c.BcryptCost, bcrypt.MinCost)
	}
	return nil
}

// LoginEnabled reports whether an operator password is configured.
func (c *PasswordConfig) LoginEnabled() bool {
	return c.AdminHash != ""
}

// HashPassword hashes a password for STUDIO_ADMIN_PASSWORD_HASH.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyAdmin checks pw against the operator hash.
func (c *PasswordConfig) VerifyAdmin(pw string) bool {
	if !c.LoginEnabled() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.AdminHash), []byte(pw)) == nil
}
