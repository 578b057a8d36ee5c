//go:build !darwin && !linux

package fscheck

import "errors"

var errUnsupported = errors.New("filesystem detection is unsupported on this platform")

func detectFilesystemType(string) (string, error) {
	return "", errUnsupported
}
