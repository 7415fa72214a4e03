package remoteshell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ExecTransport drives the system ssh and rsync binaries. There is no
// embedded SSH client: authentication, known-hosts handling, and transfer
// semantics are whatever the operator's ssh/rsync configuration says.
type ExecTransport struct {
	SSHBinary   string
	RsyncBinary string
	// Output receives rsync's verbose progress stream; nil discards it.
	Output io.Writer
}

// NewExecTransport returns an ExecTransport with the given binary names
// (typically "ssh" and "rsync", resolved via PATH).
func NewExecTransport(sshBinary, rsyncBinary string, output io.Writer) *ExecTransport {
	return &ExecTransport{SSHBinary: sshBinary, RsyncBinary: rsyncBinary, Output: output}
}

func (t *ExecTransport) Run(ctx context.Context, target, command string) (string, error) {
	cmd := exec.CommandContext(ctx, t.SSHBinary, target, command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ssh %s %q: %w: %s", target, command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (t *ExecTransport) Pull(ctx context.Context, target, remotePath, destDir string) error {
	// Trailing slash on the source copies the directory's contents rather
	// than the directory itself.
	src := fmt.Sprintf("%s:%s/", target, strings.TrimSuffix(remotePath, "/"))
	return t.rsync(ctx, src, destDir+"/")
}

func (t *ExecTransport) Push(ctx context.Context, srcDir, target, remotePath string) error {
	dst := fmt.Sprintf("%s:%s/", target, strings.TrimSuffix(remotePath, "/"))
	return t.rsync(ctx, strings.TrimSuffix(srcDir, "/")+"/", dst)
}

func (t *ExecTransport) rsync(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, t.RsyncBinary, "-av", "-e", t.SSHBinary, src, dst)
	var stderr bytes.Buffer
	if t.Output != nil {
		cmd.Stdout = t.Output
	} else {
		cmd.Stdout = io.Discard
	}
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rsync %s -> %s: %w: %s", src, dst, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// QuoteArg single-quotes s for safe interpolation into a remote shell
// command line.
func QuoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
