package security

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	plaintext := []byte("channels:\n  - id: pagerduty-oncall\n")
	env, err := Seal(plaintext, []byte("correct horse"))
	require.NoError(t, err)

	assert.Equal(t, 1, env.Version)
	assert.Equal(t, PBKDF2Iterations, env.Iterations)
	assert.Len(t, env.Salt, SaltSize)
	assert.Len(t, env.Nonce, NonceSize)
	assert.NotContains(t, string(env.Ciphertext), "pagerduty")

	got, err := Open(env, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealUsesFreshSaltAndNonce(t *testing.T) {
	a, err := Seal([]byte("x"), []byte("k"))
	require.NoError(t, err)
	b, err := Seal([]byte("x"), []byte("k"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestSealRequiresPassphrase(t *testing.T) {
	_, err := Seal([]byte("x"), nil)
	assert.Error(t, err)
}

func TestOpenRejects(t *testing.T) {
	sealed := func(t *testing.T) *Envelope {
		env, err := Seal([]byte("secret"), []byte("pass"))
		require.NoError(t, err)
		return env
	}

	tests := []struct {
		name   string
		mutate func(*Envelope)
		pass   string
	}{
		{"wrong passphrase", func(*Envelope) {}, "other"},
		{"tampered ciphertext", func(e *Envelope) { e.Ciphertext[0] ^= 0xff }, "pass"},
		{"tampered nonce", func(e *Envelope) { e.Nonce[0] ^= 0xff }, "pass"},
		{"short salt", func(e *Envelope) { e.Salt = e.Salt[:4] }, "pass"},
		{"short nonce", func(e *Envelope) { e.Nonce = e.Nonce[:4] }, "pass"},
		{"unknown version", func(e *Envelope) { e.Version = 9 }, "pass"},
		{"unknown kdf", func(e *Envelope) { e.KDF = "md5" }, "pass"},
		{"zero iterations", func(e *Envelope) { e.Iterations = 0 }, "pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := sealed(t)
			tt.mutate(env)
			_, err := Open(env, []byte(tt.pass))
			assert.Error(t, err)
		})
	}

	_, err := Open(nil, []byte("pass"))
	assert.Error(t, err)
}

func TestSealedFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSealedFile(filepath.Join(dir, "channels.yaml"), []byte("hello"), []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "channels.yaml.enc"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "pbkdf2-sha256", env.KDF)

	got, err := ReadFile(path, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	_, err = ReadFile(path, nil)
	assert.ErrorContains(t, err, "passphrase required")
	_, err = ReadFile(path, []byte("nope"))
	assert.Error(t, err)
}

func TestReadFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0600))

	got, err := ReadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(got))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestIsSealedPath(t *testing.T) {
	assert.True(t, IsSealedPath("/etc/alertd/channels.yaml.enc"))
	assert.False(t, IsSealedPath("/etc/alertd/channels.yaml"))
	assert.False(t, IsSealedPath("channels.enc.yaml"))
}
