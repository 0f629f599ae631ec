// Package auth holds the static bearer token sent with every API call.
//
// The token comes from the TADA_TOKEN environment variable when set, else
// from credentials.json in the tada home directory (written by
// `todo auth login`).
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

// EnvToken overrides the stored credentials.
const EnvToken = "TADA_TOKEN"

const credFileName = "credentials.json"

// ErrNoToken means neither the env var nor the credentials file has a token.
var ErrNoToken = errors.New("no token found. Set TADA_TOKEN or run `todo auth login`")

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (JWT exp claim)
}

// Expired reports whether the token has a known expiry before now.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && ti.ExpiresAt.Before(now)
}

// Store reads and writes credentials under Dir.
type Store struct {
	Dir    string
	Getenv func(string) string
}

func NewStore(dir string, getenv func(string) string) *Store {
	return &Store{Dir: dir, Getenv: getenv}
}

func (s *Store) path() string { return filepath.Join(s.Dir, credFileName) }

// Get returns the active token, or ErrNoToken.
func (s *Store) Get() (*TokenInfo, error) {
	// 1) env override
	if s.Getenv != nil {
		if env := strings.TrimSpace(s.Getenv(EnvToken)); env != "" {
			return &TokenInfo{Token: StripBearer(env), Source: "env"}, nil
		}
	}

	// 2) file
	var ti TokenInfo
	found, err := jsonstore.Load(s.path(), &ti)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	ti.Token = StripBearer(strings.TrimSpace(ti.Token))
	if !found || ti.Token == "" {
		return nil, ErrNoToken
	}
	ti.Source = "file"
	return &ti, nil
}

// Set saves token (owner-only permissions). A JWT's exp claim becomes ExpiresAt.
func (s *Store) Set(token string, now time.Time) (*TokenInfo, error) {
	token = StripBearer(strings.TrimSpace(token))
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	ti := &TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: now,
	}
	if claims, ok := DecodeClaims(token); ok {
		if exp, ok := claims["exp"].(float64); ok {
			t := time.Unix(int64(exp), 0).UTC()
			ti.ExpiresAt = &t
		}
	}
	if err := jsonstore.Save(s.path(), ti, 0o600); err != nil {
		return nil, err
	}
	return ti, nil
}

// Delete forgets the stored token. Missing credentials are not an error.
func (s *Store) Delete() error {
	return jsonstore.Remove(s.path())
}

// StripBearer drops a leading "Bearer " so pasted headers work too.
func StripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// DecodeClaims reads a JWT payload without verifying it. Opaque tokens
// return false.
func DecodeClaims(token string) (map[string]any, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, false
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}
	return claims, true
}
