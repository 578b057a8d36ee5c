// Package fscheck inspects the filesystem a course root lives on.
package fscheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// shared lists filesystem types backed by a network share. flock is advisory
// or unsupported on most of them.
var shared = map[string]bool{
	"9p":     true,
	"afpfs":  true,
	"afs":    true,
	"ceph":   true,
	"cifs":   true,
	"nfs":    true,
	"smbfs":  true,
	"smb2":   true,
	"webdav": true,
}

// Info describes the filesystem backing a path.
type Info struct {
	// Path is the existing ancestor that was inspected.
	Path    string
	Type    string
	Network bool
}

type detectFunc func(path string) (string, error)

// Detect inspects path, or its closest existing ancestor when path has not
// been created yet.
func Detect(path string) (Info, error) {
	return detectWith(path, detectFilesystemType)
}

// NetworkFilesystem returns the filesystem type when path lives on a network
// share, or "" for local disks.
func NetworkFilesystem(path string) (string, error) {
	info, err := Detect(path)
	if err != nil || !info.Network {
		return "", err
	}
	return info.Type, nil
}

func detectWith(path string, detect detectFunc) (Info, error) {
	if strings.TrimSpace(path) == "" {
		return Info{}, errors.New("path is empty")
	}

	existing, err := closestExisting(path)
	if err != nil {
		return Info{}, fmt.Errorf("resolve path %q: %w", path, err)
	}

	fsType, err := detect(existing)
	if err != nil {
		return Info{}, fmt.Errorf("detect filesystem for %q: %w", existing, err)
	}

	fsType = strings.ToLower(strings.TrimSpace(fsType))
	return Info{Path: existing, Type: fsType, Network: shared[fsType]}, nil
}

func closestExisting(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	for {
		_, err := os.Stat(dir)
		switch {
		case err == nil:
			return dir, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor of %q", path)
		}
		dir = parent
	}
}
