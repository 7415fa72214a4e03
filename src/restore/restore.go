package restore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"remote-backup/src/locations"
	"remote-backup/src/remoteshell"
	"remote-backup/src/safety"
	"remote-backup/src/settings"
)

// ErrNoBackups is returned when a host has fewer snapshots than the
// requested rank. The restore performs no filesystem mutation in that case.
var ErrNoBackups = errors.New("no backups found")

// Orchestrator restores snapshot directories back to their origin hosts.
type Orchestrator struct {
	Transport remoteshell.Transport
	Fs        afero.Fs
	Settings  settings.Settings
	Opts      safety.Options
	Log       zerolog.Logger
	Stdout    io.Writer
}

// Snapshot is one backup directory candidate for a host, ordered by
// filesystem recency.
type Snapshot struct {
	Name string
	Path string
}

// Restore restores the rank-th most recent snapshot. With line > 0 it
// restores only the host configured at that line; otherwise it restores
// every distinct host in the config, each independently. A failing host is
// reported and the loop continues.
func (o *Orchestrator) Restore(ctx context.Context, rank, line int, cfg *locations.Config) error {
	if line > 0 {
		loc, err := cfg.ByLine(line)
		if err != nil {
			return err
		}
		return o.Host(ctx, rank, locations.NormalizeHost(loc.Host), cfg)
	}
	failed := 0
	hosts := cfg.DistinctHosts()
	for _, host := range hosts {
		if err := o.Host(ctx, rank, host, cfg); err != nil {
			o.Log.Error().Str("host", host).Err(err).Msg("restore failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d hosts failed", failed, len(hosts))
	}
	return nil
}

// Host restores the rank-th most recent snapshot for a normalized host:
// clear staging, clear the resolved destination, copy the snapshot into
// staging, push staging to the destination. When no config line resolves the
// host back to a destination, the destination steps are skipped entirely;
// nothing outside the staging area is touched. The destination clear is
// destructive and unconditional.
func (o *Orchestrator) Host(ctx context.Context, rank int, host string, cfg *locations.Config) error {
	snaps, err := o.SnapshotsFor(host)
	if err != nil {
		return err
	}
	if len(snaps) < rank {
		return fmt.Errorf("%w for host %s at rank %d (have %d)", ErrNoBackups, host, rank, len(snaps))
	}
	chosen := snaps[rank-1]
	dest, resolved := cfg.ByNormalizedHost(host)

	if o.Opts.DryRun {
		if resolved {
			fmt.Fprintf(o.Stdout, "dry-run: would restore %s to %s\n", chosen.Name, dest.Raw)
		} else {
			fmt.Fprintf(o.Stdout, "dry-run: would stage %s (no destination resolved for %s)\n", chosen.Name, host)
		}
		return nil
	}

	fmt.Fprintf(o.Stdout, "Restoring %s (rank %d for %s)\n", chosen.Name, rank, host)
	if err := o.clearStaging(); err != nil {
		return err
	}
	if resolved {
		if err := o.clearDestination(ctx, dest); err != nil {
			return err
		}
	} else {
		o.Log.Warn().Str("host", host).Msg("no configured location resolves this host; staging only")
	}
	if err := copyTree(o.Fs, chosen.Path, o.Settings.StagingDir); err != nil {
		return fmt.Errorf("stage snapshot %s: %w", chosen.Name, err)
	}
	if resolved {
		if err := o.Transport.Push(ctx, o.Settings.StagingDir, dest.UserHost(), dest.Path); err != nil {
			return fmt.Errorf("push staging to %s: %w", dest.Raw, err)
		}
		fmt.Fprintf(o.Stdout, "Restored %s to %s\n", chosen.Name, dest.Raw)
	}
	return nil
}

// SnapshotsFor lists the backup-root directories whose names start with
// <host>_, most recent first by modification time. Hidden entries (the
// staging directory lives under the backup root as a dot-dir) are skipped.
func (o *Orchestrator) SnapshotsFor(host string) ([]Snapshot, error) {
	entries, err := afero.ReadDir(o.Fs, o.Settings.BackupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup root: %w", err)
	}
	type candidate struct {
		snap Snapshot
		mod  int64
	}
	var cands []candidate
	prefix := host + "_"
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		cands = append(cands, candidate{
			snap: Snapshot{Name: e.Name(), Path: filepath.Join(o.Settings.BackupRoot, e.Name())},
			mod:  e.ModTime().UnixNano(),
		})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].mod != cands[j].mod {
			return cands[i].mod > cands[j].mod
		}
		// Same mtime: the timestamp suffix breaks the tie, newest first.
		return cands[i].snap.Name > cands[j].snap.Name
	})
	snaps := make([]Snapshot, 0, len(cands))
	for _, c := range cands {
		snaps = append(snaps, c.snap)
	}
	return snaps, nil
}

func (o *Orchestrator) clearStaging() error {
	staging := o.Settings.StagingDir
	if err := safety.EnsureClearable(staging); err != nil {
		return err
	}
	if err := o.Fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear staging area: %w", err)
	}
	if err := o.Fs.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("recreate staging area: %w", err)
	}
	return nil
}

// clearDestination removes the remote destination's contents with an exact,
// quoted, non-glob delete, then recreates the directory.
func (o *Orchestrator) clearDestination(ctx context.Context, dest locations.Location) error {
	if err := safety.EnsureRemoteClearable(dest.Path); err != nil {
		return err
	}
	q := remoteshell.QuoteArg(dest.Path)
	cmd := fmt.Sprintf("rm -rf -- %s && mkdir -p -- %s", q, q)
	if _, err := o.Transport.Run(ctx, dest.UserHost(), cmd); err != nil {
		return fmt.Errorf("clear destination %s: %w", dest.Raw, err)
	}
	return nil
}

// copyTree copies the contents of src into dst, preserving relative
// structure. dst must already exist.
func copyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode().Perm())
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(fs, path, target, info.Mode().Perm())
	})
}

func copyFile(fs afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
