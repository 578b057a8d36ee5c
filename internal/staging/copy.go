package staging

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyEntry copies a file, symlink or directory tree from src to dst. dst must
// not exist yet.
func copyEntry(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	switch {
	case info.IsDir():
		return copyTree(src, dst)
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(src, dst)
	case info.Mode().IsRegular():
		return copyFile(src, dst, info.Mode().Perm())
	default:
		return fmt.Errorf("unsupported file type for %q (%s)", src, info.Mode().Type())
	}
}

func copyTree(srcDir, dstDir string) error {
	srcInfo, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("source path %q is not a directory", srcDir)
	}

	if err := os.Mkdir(dstDir, srcInfo.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == srcDir {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("resolve relative path: %w", err)
		}
		dstPath := filepath.Join(dstDir, relPath)

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("read entry info for %q: %w", path, err)
		}

		switch {
		case d.IsDir():
			if err := os.Mkdir(dstPath, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("create directory %q: %w", dstPath, err)
			}
		case info.Mode().IsRegular():
			if err := copyFile(path, dstPath, info.Mode().Perm()); err != nil {
				return err
			}
		case info.Mode()&os.ModeSymlink != 0:
			if err := copySymlink(path, dstPath); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported file type for %q (%s)", path, info.Mode().Type())
		}

		return nil
	})
}

// copyFile copies a regular file's bytes. An existing dst is truncated, but
// only once src is known to be a regular file.
func copyFile(src, dst string, perm os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %q: not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %q: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q to %q: %w", src, dst, err)
	}
	return nil
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("read symlink %q: %w", src, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("create symlink %q: %w", dst, err)
	}
	return nil
}
