package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Entry is one checksum record: a file basename and its last-known digest.
type Entry struct {
	Checksum string
	Basename string
}

// Ledger is the persistent basename -> checksum registry. Keys are basenames,
// not full paths: two files with the same basename under different directories
// share one entry. That is a property of the ledger file format, not a bug in
// the loader.
type Ledger struct {
	fs      afero.Fs
	path    string
	entries []Entry
	index   map[string]int
}

// Load reads the ledger file. A missing file yields an empty ledger.
func Load(fs afero.Fs, path string) (*Ledger, error) {
	l := &Ledger{fs: fs, path: path, index: map[string]int{}}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		l.put(Entry{Checksum: fields[0], Basename: fields[1]})
	}
	return l, nil
}

// Lookup returns the recorded checksum for a basename. The match is exact on
// the basename key.
func (l *Ledger) Lookup(basename string) (string, bool) {
	i, ok := l.index[basename]
	if !ok {
		return "", false
	}
	return l.entries[i].Checksum, true
}

// Upsert rewrites the entry for basename in place, or appends a new one.
// Untouched entries keep their position.
func (l *Ledger) Upsert(basename, checksum string) {
	l.put(Entry{Checksum: checksum, Basename: basename})
}

func (l *Ledger) put(e Entry) {
	if i, ok := l.index[e.Basename]; ok {
		l.entries[i] = e
		return
	}
	l.index[e.Basename] = len(l.entries)
	l.entries = append(l.entries, e)
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Save writes the ledger back to its file, one "<checksum> <basename>" line
// per entry.
func (l *Ledger) Save() error {
	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "%s %s\n", e.Checksum, e.Basename)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	if err := afero.WriteFile(l.fs, l.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
