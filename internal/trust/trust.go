// Package trust persists the signed-in user's session: the OAuth-style
// token plus profile fields. The envelope is sealed through the OS
// keychain when one is reachable, and falls back to a plain JSON file on
// disk otherwise (headless Linux, CI, containers without a keychain
// service) — loss of the file means unauthenticated, corruption means the
// file is deleted and the user is re-prompted to sign in.
package trust

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/zalando/go-keyring"
)

// FileName is the trust file's fixed name within its application-data
// directory.
const FileName = "trust.json"

// service is the keychain service name under which the envelope is sealed.
const service = "lumosnap"

// keyringAccount is the fixed account name go-keyring stores the envelope
// under; there is only ever one signed-in session per machine account.
const keyringAccount = "session"

// User is the signed-in user's profile, cached alongside the token so the
// UI can render it without a network round trip.
type User struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Image *string `json:"image,omitempty"`
}

// Envelope is the persisted session: an opaque bearer token plus the user
// it belongs to.
type Envelope struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ErrNotFound is returned by Load when no session has been saved, in
// either the keychain or the JSON fallback.
var ErrNotFound = errors.New("trust: no session found")

// Path returns the JSON fallback path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Save seals env through the OS keychain when one is reachable; otherwise
// it writes env as plain JSON to dataDir. Never logs token values.
func Save(dataDir string, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("trust: encoding: %w", err)
	}

	if err := keyring.Set(service, keyringAccount, string(data)); err == nil {
		// Sealed successfully; remove any stale plaintext fallback so a
		// corrupted-on-disk copy can't later shadow the keychain version.
		_ = os.Remove(Path(dataDir))
		return nil
	}

	return saveFallback(dataDir, data)
}

func saveFallback(dataDir string, data []byte) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("trust: creating %s: %w", dataDir, err)
	}

	if err := atomic.WriteFile(Path(dataDir), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("trust: writing %s: %w", dataDir, err)
	}

	return os.Chmod(Path(dataDir), 0o600)
}

// Load reads the saved session, preferring the OS keychain over the JSON
// fallback. Returns ErrNotFound if neither holds a session. A corrupt
// envelope (in either store) is treated as not-found and the backing
// store is cleared, per spec: corruption re-prompts the user rather than
// surfacing a decode error.
func Load(dataDir string) (*Envelope, error) {
	if data, err := keyring.Get(service, keyringAccount); err == nil {
		env, decodeErr := decode([]byte(data))
		if decodeErr != nil {
			_ = keyring.Delete(service, keyringAccount)
			return nil, ErrNotFound
		}

		return env, nil
	}

	data, err := os.ReadFile(Path(dataDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("trust: reading %s: %w", dataDir, err)
	}

	env, err := decode(data)
	if err != nil {
		_ = os.Remove(Path(dataDir))
		return nil, ErrNotFound
	}

	return env, nil
}

func decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	if env.Token == "" {
		return nil, fmt.Errorf("trust: envelope missing token")
	}

	return &env, nil
}

// Clear removes the saved session from both the keychain and the JSON
// fallback, signing the current user out.
func Clear(dataDir string) error {
	_ = keyring.Delete(service, keyringAccount)

	if err := os.Remove(Path(dataDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("trust: removing %s: %w", dataDir, err)
	}

	return nil
}
