package integrity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"remote-backup/src/ledger"
)

// PhantomSuffix is appended to a quarantined file's name. The file stays in
// place; only its name changes.
const PhantomSuffix = ".phantom"

// Checker verifies files under a directory against the checksum ledger and
// quarantines any whose digest drifted.
type Checker struct {
	Fs       afero.Fs
	Ledger   *ledger.Ledger
	AuditLog string
	Log      zerolog.Logger
}

// Report summarizes one Check run. The renames and audit records are the
// contract; the report only feeds the CLI summary line.
type Report struct {
	Checked  int
	Passed   int
	Phantoms []string
	Skipped  int
}

// Check walks every regular file under dir, digests its contents, and
// compares against the ledger entry for the file's basename. A missing or
// different entry marks the file as a phantom: it is renamed in place with
// PhantomSuffix and a four-line record is appended to the audit log.
// Files that vanish or cannot be hashed mid-scan are logged and skipped.
func (c *Checker) Check(dir string) (Report, error) {
	var rep Report
	err := afero.Walk(c.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			c.Log.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
			rep.Skipped++
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rep.Checked++
		sum, err := c.digest(path)
		if err != nil {
			c.Log.Warn().Str("path", path).Err(err).Msg("skipping unhashable file")
			rep.Skipped++
			return nil
		}
		want, _ := c.Ledger.Lookup(filepath.Base(path))
		if sum == want {
			rep.Passed++
			return nil
		}
		if err := c.quarantine(path, want, sum); err != nil {
			return err
		}
		rep.Phantoms = append(rep.Phantoms, path)
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("integrity check %s: %w", dir, err)
	}
	return rep, nil
}

func (c *Checker) quarantine(path, want, got string) error {
	c.Log.Warn().
		Str("path", path).
		Str("recorded", want).
		Str("computed", got).
		Msg("phantom file detected")
	if err := c.appendAudit(path, want, got); err != nil {
		return err
	}
	if err := c.Fs.Rename(path, path+PhantomSuffix); err != nil {
		return fmt.Errorf("quarantine %s: %w", path, err)
	}
	return nil
}

// appendAudit writes one four-line incident record: path, recorded checksum,
// new checksum, description.
func (c *Checker) appendAudit(path, want, got string) error {
	if dir := filepath.Dir(c.AuditLog); dir != "." {
		if err := c.Fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit log directory: %w", err)
		}
	}
	f, err := c.Fs.OpenFile(c.AuditLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", path)
	fmt.Fprintf(&b, "Original: %s\n", want)
	fmt.Fprintf(&b, "New: %s\n", got)
	fmt.Fprintf(&b, "Checksum changed unexpectedly; file quarantined with %s suffix\n", PhantomSuffix)
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

func (c *Checker) digest(path string) (string, error) {
	f, err := c.Fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes hashes an in-memory payload with the checksum algorithm the
// checker uses, so tests and fixtures agree with it.
func DigestBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
