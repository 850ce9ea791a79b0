package keys

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"charak/pkg/sentinel"
)

type FileKeystoreSuite struct {
	suite.Suite
	dir      string
	keystore *FileKeystore
	ctx      context.Context
}

func TestFileKeystoreSuite(t *testing.T) {
	suite.Run(t, new(FileKeystoreSuite))
}

func (s *FileKeystoreSuite) SetupTest() {
	s.dir = s.T().TempDir()
	ks, err := NewFileKeystore(s.dir, []byte("unit-test-master-secret"))
	s.Require().NoError(err)
	s.keystore = ks
	s.ctx = context.Background()
}

func (s *FileKeystoreSuite) TestGenerateAndRead() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))

	material, err := s.keystore.Key(s.ctx, "audit-hmac-v1")
	s.Require().NoError(err)
	s.Len(material, 32)

	again, err := s.keystore.Key(s.ctx, "audit-hmac-v1")
	s.Require().NoError(err)
	s.Equal(material, again)
}

func (s *FileKeystoreSuite) TestGenerateOverExistingAliasConflicts() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))
	err := s.keystore.Generate(s.ctx, "audit-hmac-v1", 32)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *FileKeystoreSuite) TestMaterialSealedAtRest() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))
	material, err := s.keystore.Key(s.ctx, "audit-hmac-v1")
	s.Require().NoError(err)

	raw, err := os.ReadFile(filepath.Join(s.dir, "audit-hmac-v1.key"))
	s.Require().NoError(err)
	s.NotContains(string(raw), string(material))

	// The file is a sealed envelope, not plaintext material.
	var env struct {
		Nonce      []byte `json:"nonce"`
		Ciphertext []byte `json:"ciphertext"`
	}
	s.Require().NoError(json.Unmarshal(raw, &env))
	s.Len(env.Nonce, 24)
	s.NotEmpty(env.Ciphertext)
}

func (s *FileKeystoreSuite) TestAliasBoundSealing() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))

	// Copying a key file to a different alias must not decrypt.
	src := filepath.Join(s.dir, "audit-hmac-v1.key")
	dst := filepath.Join(s.dir, "storage-aes-v1.key")
	raw, err := os.ReadFile(src)
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(dst, raw, 0o600))

	_, err = s.keystore.Key(s.ctx, "storage-aes-v1")
	s.Require().ErrorIs(err, sentinel.ErrCorrupted)
}

func (s *FileKeystoreSuite) TestWrongMasterFailsClosed() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))

	other, err := NewFileKeystore(s.dir, []byte("a-different-master-secret"))
	s.Require().NoError(err)
	_, err = other.Key(s.ctx, "audit-hmac-v1")
	s.Require().ErrorIs(err, sentinel.ErrCorrupted)
}

func (s *FileKeystoreSuite) TestDeleteAndContains() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))

	exists, err := s.keystore.Contains(s.ctx, "audit-hmac-v1")
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(s.keystore.Delete(s.ctx, "audit-hmac-v1"))
	exists, err = s.keystore.Contains(s.ctx, "audit-hmac-v1")
	s.Require().NoError(err)
	s.False(exists)

	// Deleting again stays quiet.
	s.Require().NoError(s.keystore.Delete(s.ctx, "audit-hmac-v1"))

	_, err = s.keystore.Key(s.ctx, "audit-hmac-v1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *FileKeystoreSuite) TestAliases() {
	s.Require().NoError(s.keystore.Generate(s.ctx, "audit-hmac-v1", 32))
	s.Require().NoError(s.keystore.Generate(s.ctx, "storage-aes-v1", 32))

	aliases, err := s.keystore.Aliases(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"audit-hmac-v1", "storage-aes-v1"}, aliases)
}

func TestNewFileKeystoreRequiresMaster(t *testing.T) {
	_, err := NewFileKeystore(t.TempDir(), nil)
	require.Error(t, err)
}
