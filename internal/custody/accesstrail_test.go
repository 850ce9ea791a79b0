package custody

import (
	"os"
	"path/filepath"
	"testing"
)

// appendRawTrailLine writes an arbitrary line straight into the trail
// file, bypassing the encoder, for corruption tests.
func appendRawTrailLine(t *testing.T, dir, line string) {
	t.Helper()
	path := filepath.Join(dir, "access-trail.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open trail: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("write trail: %v", err)
	}
}
