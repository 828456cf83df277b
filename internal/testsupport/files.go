package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates the target path with placeholder contents, creating
// parent directories as needed. Used to stand in for audio clips and other
// artifacts that tests only check for existence.
func WriteFile(t testing.TB, path string, contents string) {
	t.Helper()

	if contents == "" {
		contents = "stub"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
