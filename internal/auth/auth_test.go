package auth

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestGetWithoutCredentials(t *testing.T) {
	s := NewStore(t.TempDir(), env(nil))
	_, err := s.Get()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, env(map[string]string{EnvToken: "Bearer from-env"}))
	_, err := s.Set("from-file", time.Now())
	require.NoError(t, err)

	ti, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "from-env", ti.Token)
	assert.Equal(t, "env", ti.Source)
}

func TestSetGetDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, env(nil))

	_, err := s.Set("  bearer abc123 ", time.Now())
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(dir, credFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	ti, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc123", ti.Token)
	assert.Equal(t, "file", ti.Source)
	assert.Nil(t, ti.ExpiresAt)

	require.NoError(t, s.Delete())
	require.NoError(t, s.Delete())
	_, err = s.Get()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSetRejectsEmpty(t *testing.T) {
	s := NewStore(t.TempDir(), env(nil))
	_, err := s.Set("Bearer  ", time.Now())
	assert.Error(t, err)
}

func TestJWTExpiry(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u1","exp":1700000000}`))
	token := "eyJhbGciOiJIUzI1NiJ9." + payload + ".sig"

	claims, ok := DecodeClaims(token)
	require.True(t, ok)
	assert.Equal(t, "u1", claims["sub"])

	s := NewStore(t.TempDir(), env(nil))
	ti, err := s.Set(token, time.Now())
	require.NoError(t, err)
	require.NotNil(t, ti.ExpiresAt)
	assert.Equal(t, int64(1700000000), ti.ExpiresAt.Unix())
	assert.True(t, ti.Expired(time.Unix(1800000000, 0)))
	assert.False(t, ti.Expired(time.Unix(1600000000, 0)))
}

func TestOpaqueToken(t *testing.T) {
	_, ok := DecodeClaims("r-U6mHEWJQ3FTIOJSAMN9Z6pfY8e3F63")
	assert.False(t, ok)
}

func TestStripBearer(t *testing.T) {
	assert.Equal(t, "x", StripBearer("Bearer x"))
	assert.Equal(t, "x", StripBearer("bearer   x"))
	assert.Equal(t, "x", StripBearer("x"))
}
