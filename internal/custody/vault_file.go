package custody

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"charak/internal/platform/seal"
	"charak/pkg/sentinel"
)

const vaultFileSuffix = ".pk8"

// FileVault persists private keys sealed with XChaCha20-Poly1305, one
// file per key id. The sealing key is HKDF-derived from the custody
// master secret and bound to the key id, so a vault file copied under a
// different name will not open.
type FileVault struct {
	dir    string
	master []byte

	mu sync.Mutex
}

func NewFileVault(dir string, master []byte) (*FileVault, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("file vault: master secret is required")
	}
	return &FileVault{dir: dir, master: master}, nil
}

func (v *FileVault) path(keyID string) string {
	return filepath.Join(v.dir, keyID+vaultFileSuffix)
}

func (v *FileVault) sealKey(keyID string) ([]byte, error) {
	return seal.Derive(v.master, "charak-custody", "clinic-key:"+keyID)
}

func (v *FileVault) Store(_ context.Context, keyID string, der []byte) error {
	if keyID == "" {
		return fmt.Errorf("vault store: empty key id")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := os.Stat(v.path(keyID)); err == nil {
		return sentinel.ErrConflict
	}

	key, err := v.sealKey(keyID)
	if err != nil {
		return err
	}
	env, err := seal.Seal(key, der, []byte(keyID))
	if err != nil {
		return fmt.Errorf("vault seal: %w", err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("vault encode: %w", err)
	}

	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return fmt.Errorf("vault mkdir: %w", err)
	}
	tmp := v.path(keyID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("vault write: %w", err)
	}
	if err := os.Rename(tmp, v.path(keyID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vault rename: %w", err)
	}
	return nil
}

func (v *FileVault) Load(_ context.Context, keyID string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := os.ReadFile(v.path(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("vault read: %w", err)
	}
	var env seal.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("vault decode %s: %w", keyID, sentinel.ErrCorrupted)
	}
	key, err := v.sealKey(keyID)
	if err != nil {
		return nil, err
	}
	der, err := seal.Open(key, env, []byte(keyID))
	if err != nil {
		return nil, fmt.Errorf("vault unseal %s: %w", keyID, sentinel.ErrCorrupted)
	}
	return der, nil
}

func (v *FileVault) Contains(_ context.Context, keyID string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := os.Stat(v.path(keyID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("vault stat: %w", err)
}

func (v *FileVault) Delete(_ context.Context, keyID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	err := os.Remove(v.path(keyID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault delete: %w", err)
	}
	return nil
}
