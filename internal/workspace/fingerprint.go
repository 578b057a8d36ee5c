package workspace

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Fingerprint computes a BLAKE3 digest over the tree rooted at dir: every
// entry's slash-separated relative path, its kind, and for regular files the
// content. Modification times and permissions are ignored, so two stagings of
// the same inputs produce the same fingerprint.
func Fingerprint(dir string) (string, error) {
	h := blake3.New()

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("resolve relative path: %w", err)
		}

		switch {
		case d.IsDir():
			fmt.Fprintf(h, "d %s\n", filepath.ToSlash(rel))
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("read symlink %q: %w", path, err)
			}
			fmt.Fprintf(h, "l %s -> %s\n", filepath.ToSlash(rel), target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("read entry info for %q: %w", path, err)
			}
			fmt.Fprintf(h, "f %s %d\n", filepath.ToSlash(rel), info.Size())
			if err := hashFile(h, path); err != nil {
				return err
			}
		default:
			fmt.Fprintf(h, "? %s\n", filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", dir, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("hash %q: %w", path, err)
	}
	return nil
}
