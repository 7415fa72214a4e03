package snapshot

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"remote-backup/src/ledger"
	"remote-backup/src/locations"
	"remote-backup/src/remoteshell"
)

// Snapshotter records the current checksums of a remote location's files
// into the shared ledger before a transfer runs.
type Snapshotter struct {
	Transport remoteshell.Transport
	Ledger    *ledger.Ledger
	Log       zerolog.Logger
}

// Snapshot enumerates regular files under the location's remote path,
// computes each file's checksum on the remote host, and upserts the
// (basename, checksum) pairs into the ledger. Enumeration failure is fatal
// for the location. Checksums are computed one remote invocation per file;
// the original tool behaves the same way and batching would change the
// observable command stream.
func (s *Snapshotter) Snapshot(ctx context.Context, loc locations.Location) error {
	target := loc.UserHost()
	out, err := s.Transport.Run(ctx, target, "find "+remoteshell.QuoteArg(loc.Path)+" -type f")
	if err != nil {
		return fmt.Errorf("enumerate remote files at %s: %w", loc.Raw, err)
	}
	files := splitLines(out)
	s.Log.Info().Str("host", loc.Host).Str("path", loc.Path).Int("files", len(files)).
		Msg("snapshotting remote checksums")
	for _, file := range files {
		sumOut, err := s.Transport.Run(ctx, target, "md5sum "+remoteshell.QuoteArg(file))
		if err != nil {
			return fmt.Errorf("checksum remote file %s: %w", file, err)
		}
		fields := strings.Fields(sumOut)
		if len(fields) < 1 {
			return fmt.Errorf("checksum remote file %s: empty output", file)
		}
		s.Ledger.Upsert(path.Base(file), fields[0])
	}
	if err := s.Ledger.Save(); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
