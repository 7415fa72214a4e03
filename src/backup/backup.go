package backup

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"remote-backup/src/integrity"
	"remote-backup/src/ledger"
	"remote-backup/src/locations"
	"remote-backup/src/remoteshell"
	"remote-backup/src/safety"
	"remote-backup/src/settings"
	"remote-backup/src/snapshot"
)

// TimestampFormat names snapshot directories down to the second.
const TimestampFormat = "20060102150405"

// Orchestrator runs backups for configured locations.
type Orchestrator struct {
	Transport remoteshell.Transport
	Fs        afero.Fs
	Settings  settings.Settings
	Opts      safety.Options
	Log       zerolog.Logger
	Stdout    io.Writer
	// Now is the clock; tests pin it.
	Now func() time.Time
}

// SnapshotDirName builds the snapshot directory name for a host and remote
// path: <host with dots as underscores>_<basename(path)>_<timestamp>.
func SnapshotDirName(host, remotePath, timestamp string) string {
	return locations.NormalizeHost(host) + "_" + filepath.Base(remotePath) + "_" + timestamp
}

// Location backs up one location: it records the remote files' checksums in
// the ledger, pulls the remote tree into a fresh timestamped snapshot
// directory, then integrity-checks the copy against the ledger. A transport
// failure aborts before the integrity step; a partially transferred
// destination is never verified and reported as complete.
func (o *Orchestrator) Location(ctx context.Context, loc locations.Location) (string, error) {
	ts := o.Now().Format(TimestampFormat)
	dest := filepath.Join(o.Settings.BackupRoot, SnapshotDirName(loc.Host, loc.Path, ts))

	if o.Opts.DryRun {
		fmt.Fprintf(o.Stdout, "dry-run: would back up %s into %s\n", loc.Raw, dest)
		return dest, nil
	}

	fmt.Fprintf(o.Stdout, "Backing up %s -> %s\n", loc.Raw, dest)
	if err := o.Fs.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	led, err := ledger.Load(o.Fs, o.Settings.LedgerFile)
	if err != nil {
		return "", err
	}
	snap := snapshot.Snapshotter{Transport: o.Transport, Ledger: led, Log: o.Log}
	if err := snap.Snapshot(ctx, loc); err != nil {
		return "", err
	}

	if err := o.Transport.Pull(ctx, loc.UserHost(), loc.Path, dest); err != nil {
		return "", fmt.Errorf("transfer %s: %w", loc.Raw, err)
	}

	checker := integrity.Checker{Fs: o.Fs, Ledger: led, AuditLog: o.Settings.AuditLog, Log: o.Log}
	rep, err := checker.Check(dest)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(o.Stdout, "Verified %d files: %d passed, %d phantoms, %d skipped\n",
		rep.Checked, rep.Passed, len(rep.Phantoms), rep.Skipped)
	return dest, nil
}

// All backs up every configured location in order. A failing location is
// reported and the loop continues; the error summarizes how many failed.
func (o *Orchestrator) All(ctx context.Context, cfg *locations.Config) error {
	failed := 0
	for i, loc := range cfg.Locations {
		fmt.Fprintf(o.Stdout, "[%d/%d] %s\n", i+1, len(cfg.Locations), loc.Raw)
		if _, err := o.Location(ctx, loc); err != nil {
			o.Log.Error().Str("location", loc.Raw).Err(err).Msg("backup failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d locations failed", failed, len(cfg.Locations))
	}
	return nil
}
