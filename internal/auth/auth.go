// Package auth issues and validates API tokens. A token is "<id>.<secret>";
// only a bcrypt hash of the secret is stored, so the database never holds
// enough to reconstruct a token.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for any token that fails validation. The
// cause (unknown id, bad secret, malformed) is deliberately not exposed.
var ErrInvalidToken = errors.New("invalid token")

// Token describes an issued API token. The secret is never recoverable.
type Token struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Service provides API token operations.
type Service struct {
	db *sql.DB
}

// NewService creates an auth service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Issue creates a named token and returns its full value. This is the only
// time the value exists in the clear.
func (s *Service) Issue(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("token name is required")
	}

	secret, err := generateSecret()
	if err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword(prehashSecret(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing token secret: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, name, token_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, id, name, string(hash), now)
	if err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}

	return id + "." + secret, nil
}

// Validate checks a presented token and returns its name on success.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return "", ErrInvalidToken
	}

	var name, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, token_hash FROM api_tokens WHERE id = ?
	`, id).Scan(&name, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("querying token: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), prehashSecret(secret)); err != nil {
		return "", ErrInvalidToken
	}
	return name, nil
}

// Revoke deletes a token by id.
func (s *Service) Revoke(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_tokens WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("token not found: %s", id)
	}
	return nil
}

// List returns all issued tokens, newest first.
func (s *Service) List(ctx context.Context) ([]Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM api_tokens ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tokens []Token
	for rows.Next() {
		var t Token
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// HasTokens reports whether any token has been issued. With none issued the
// API runs open, which is the expected state for a first boot.
func (s *Service) HasTokens(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_tokens").Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// prehashSecret runs the secret through SHA-256 before bcrypt so the input
// stays inside bcrypt's 72-byte limit regardless of secret length.
func prehashSecret(secret string) []byte {
	h := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(h[:]))
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
