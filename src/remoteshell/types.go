package remoteshell

import "context"

// Transport is a narrow interface over the remote-shell and file-sync
// collaborators. Keep it small and focused on what we actually need so it
// stays mockable.
type Transport interface {
	// Run executes a command on the remote host (target is user@host) and
	// returns its stdout. A non-zero exit is returned as an error carrying
	// the captured stderr.
	Run(ctx context.Context, target, command string) (string, error)

	// Pull recursively copies the remote directory tree at remotePath into
	// the local destDir, preserving relative structure. The copy is
	// additive: nothing already in destDir is deleted.
	Pull(ctx context.Context, target, remotePath, destDir string) error

	// Push recursively copies the local srcDir contents to remotePath on
	// the remote host.
	Push(ctx context.Context, srcDir, target, remotePath string) error
}
