//go:build linux

package fscheck

import "testing"

func TestDetectFilesystemTypeLocal(t *testing.T) {
	t.Parallel()

	fsType, err := detectFilesystemType(t.TempDir())
	if err != nil {
		t.Fatalf("detectFilesystemType: %v", err)
	}
	if fsType == "" {
		t.Fatal("expected a filesystem type")
	}
}
