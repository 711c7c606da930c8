package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const ProviderGemini = "gemini"

// Credential is one stored provider key.
type Credential struct {
	Provider   string
	APIKey     string
	Properties map[string]any
	UpdatedAt  time.Time
}

// Masked shows only the last four characters of the key.
func (c Credential) Masked() string {
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}

// Store keeps provider keys in provider_credentials so a key rotated with
// cmd/geminikey reaches the API and workers on their next start.
type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// Lookup returns the stored credential; ok is false when none exists.
func (s *Store) Lookup(ctx context.Context, provider string) (cred Credential, ok bool, err error) {
	var raw []byte
	cred.Provider = provider
	err = s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, provider).Scan(&cred.APIKey, &raw, &cred.UpdatedAt)
	if infra.IsNoRows(err) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("credentials: load %s: %w", provider, err)
	}
	cred.APIKey = strings.TrimSpace(cred.APIKey)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cred.Properties); err != nil {
			return Credential{}, false, fmt.Errorf("credentials: decode %s properties: %w", provider, err)
		}
	}
	return cred, cred.APIKey != "", nil
}

// ResolveGeminiAPIKey prefers an explicit key (GEMINI_API_KEY) over the
// stored one. An empty result means synthetic mode.
func (s *Store) ResolveGeminiAPIKey(ctx context.Context, explicit string) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, nil
	}
	if s == nil || s.sql == nil {
		return "", nil
	}
	cred, _, err := s.Lookup(ctx, ProviderGemini)
	return cred.APIKey, err
}

// Rotate replaces the provider key, stamping rotated_at and an optional note
// into the properties.
func (s *Store) Rotate(ctx context.Context, provider, key, note string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credentials: api key is required")
	}
	props := map[string]any{"rotated_at": s.now().UTC().Format(time.RFC3339)}
	if note = strings.TrimSpace(note); note != "" {
		props["note"] = note
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, provider, key, raw); err != nil {
		return fmt.Errorf("credentials: store %s: %w", provider, err)
	}
	return nil
}
