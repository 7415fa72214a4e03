package safety

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Options carries operator-selected safety behavior through the orchestrators.
type Options struct {
	// DryRun prints planned actions without making changes.
	DryRun bool
}

// ErrUnsafePath guards destructive clears. A destination that resolves to
// nothing must never expand into a delete of "/" or the working directory.
var ErrUnsafePath = errors.New("refusing to clear unsafe path")

// EnsureClearable validates a path before its contents are recursively
// removed. It rejects empty, relative, and root paths.
func EnsureClearable(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	clean := filepath.Clean(p)
	if clean == "/" || clean == "." || clean == ".." {
		return fmt.Errorf("%w: %q", ErrUnsafePath, path)
	}
	if !strings.HasPrefix(clean, "/") {
		return fmt.Errorf("%w: %q is not absolute", ErrUnsafePath, path)
	}
	return nil
}

// EnsureRemoteClearable validates a remote path before a remote recursive
// delete is issued. Remote paths additionally must not carry shell glob
// metacharacters; the delete must be exact, never a wildcard.
func EnsureRemoteClearable(path string) error {
	if err := EnsureClearable(path); err != nil {
		return err
	}
	if strings.ContainsAny(path, "*?[") {
		return fmt.Errorf("%w: %q contains glob metacharacters", ErrUnsafePath, path)
	}
	return nil
}
