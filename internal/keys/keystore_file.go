package keys

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"charak/internal/platform/seal"
	"charak/pkg/sentinel"
)

const keyFileSuffix = ".key"

// FileKeystore stores key material sealed at rest, one file per alias.
// Each alias gets its own derived sealing key bound to the alias name, so
// renaming or copying a key file breaks decryption. Files are written to
// a temp path and renamed into place.
type FileKeystore struct {
	dir    string
	master []byte

	mu sync.Mutex
}

func NewFileKeystore(dir string, master []byte) (*FileKeystore, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("file keystore: master secret is required")
	}
	return &FileKeystore{dir: dir, master: master}, nil
}

func (s *FileKeystore) path(alias string) string {
	return filepath.Join(s.dir, alias+keyFileSuffix)
}

func (s *FileKeystore) sealKey(alias string) ([]byte, error) {
	return seal.Derive(s.master, "charak-keystore", "keystore:"+alias)
}

func (s *FileKeystore) Generate(ctx context.Context, alias string, size int) error {
	if alias == "" {
		return fmt.Errorf("keystore generate: empty alias")
	}
	if size <= 0 {
		return fmt.Errorf("keystore generate: invalid key size %d", size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(alias)); err == nil {
		return sentinel.ErrConflict
	}

	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return fmt.Errorf("keystore generate: %w", err)
	}
	return s.writeSealed(alias, material)
}

func (s *FileKeystore) Key(_ context.Context, alias string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(alias))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("keystore read: %w", err)
	}
	var env seal.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("keystore decode %s: %w", alias, sentinel.ErrCorrupted)
	}
	key, err := s.sealKey(alias)
	if err != nil {
		return nil, err
	}
	material, err := seal.Open(key, env, []byte(alias))
	if err != nil {
		return nil, fmt.Errorf("keystore unseal %s: %w", alias, sentinel.ErrCorrupted)
	}
	return material, nil
}

func (s *FileKeystore) Delete(_ context.Context, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(alias))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("keystore delete: %w", err)
	}
	return nil
}

func (s *FileKeystore) Contains(_ context.Context, alias string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path(alias))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("keystore stat: %w", err)
}

func (s *FileKeystore) Aliases(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keystore readdir: %w", err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, keyFileSuffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, keyFileSuffix))
	}
	return out, nil
}

// writeSealed seals material and writes it via temp-file rename so a
// crash mid-write never leaves a truncated key file. Caller holds s.mu.
func (s *FileKeystore) writeSealed(alias string, material []byte) error {
	key, err := s.sealKey(alias)
	if err != nil {
		return err
	}
	env, err := seal.Seal(key, material, []byte(alias))
	if err != nil {
		return fmt.Errorf("keystore seal: %w", err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("keystore encode: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("keystore mkdir: %w", err)
	}
	tmp := s.path(alias) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("keystore write: %w", err)
	}
	if err := os.Rename(tmp, s.path(alias)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("keystore rename: %w", err)
	}
	return nil
}
