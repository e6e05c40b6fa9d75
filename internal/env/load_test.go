package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("GEOLOC_TEST_A=from-file\nGEOLOC_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEOLOC_TEST_B", "from-env")

	if err := LoadEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("GEOLOC_TEST_A") })

	if got := os.Getenv("GEOLOC_TEST_A"); got != "from-file" {
		t.Errorf("GEOLOC_TEST_A = %q, want from-file", got)
	}
	if got := os.Getenv("GEOLOC_TEST_B"); got != "from-env" {
		t.Errorf("GEOLOC_TEST_B = %q, want the existing value", got)
	}
}
