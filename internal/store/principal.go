package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/worktrail/worktrail/internal/models"
)

// PrincipalStore resolves API keys to principals.
type PrincipalStore struct {
	Base
}

// NewPrincipalStore creates a PrincipalStore.
func NewPrincipalStore(base Base) *PrincipalStore {
	return &PrincipalStore{Base: base}
}

// HashAPIKey returns the stored form of an API key.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// LookupPrincipal returns the principal owning apiKey, or ErrNotFound.
func (s *PrincipalStore) LookupPrincipal(ctx context.Context, apiKey string) (*models.Principal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var p models.Principal

	err := s.withRetry(ctx, func() error {
		err := s.Pool.QueryRow(ctx,
			"SELECT id, name, avatar_url FROM principals WHERE api_key_hash = $1", HashAPIKey(apiKey),
		).Scan(&p.ID, &p.Name, &p.AvatarURL)
		if err != nil {
			return fmt.Errorf("looking up principal by API key: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreatePrincipal registers a principal under apiKey.
func (s *PrincipalStore) CreatePrincipal(ctx context.Context, name string, avatarURL *string, apiKey string) (*models.Principal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	p := models.Principal{Name: name, AvatarURL: avatarURL}

	err := s.Pool.QueryRow(ctx,
		"INSERT INTO principals (name, avatar_url, api_key_hash) VALUES ($1, $2, $3) RETURNING id",
		name, avatarURL, HashAPIKey(apiKey),
	).Scan(&p.ID)
	if err != nil {
		return nil, classify(fmt.Errorf("creating principal: %w", err))
	}

	return &p, nil
}
