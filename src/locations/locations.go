package locations

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Location is a parsed backup source of the form user@host:path.
// Example: alice@10.0.0.5:/data
type Location struct {
	// Raw is the original config line.
	Raw string
	// Line is the 1-based line number in the locations file.
	Line int

	User string
	Host string
	Path string
}

// ParseError describes a malformed location line.
type ParseError struct {
	Line int
	Raw  string
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid location on line %d: %q: %s", e.Line, e.Raw, e.Msg)
	}
	return fmt.Sprintf("invalid location %q: %s", e.Raw, e.Msg)
}

// Parse parses a single location line of the form user@host:path.
func Parse(raw string) (Location, error) {
	loc := Location{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return loc, &ParseError{Raw: raw, Msg: "empty"}
	}
	user, rest, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		return loc, &ParseError{Raw: raw, Msg: "expected user@host:path"}
	}
	if strings.Contains(rest, "@") {
		return loc, &ParseError{Raw: raw, Msg: "path must not contain '@'"}
	}
	host, p, ok := strings.Cut(rest, ":")
	if !ok || host == "" || p == "" {
		return loc, &ParseError{Raw: raw, Msg: "expected user@host:path"}
	}
	loc.User = user
	loc.Host = host
	loc.Path = p
	return loc, nil
}

// UserHost returns the ssh target string, e.g. alice@10.0.0.5.
func (l Location) UserHost() string {
	return l.User + "@" + l.Host
}

// Basename returns the final element of the location path.
func (l Location) Basename() string {
	return path.Base(l.Path)
}

// NormalizeHost replaces dots with underscores; backup snapshot directory
// names use the normalized form as their prefix.
func NormalizeHost(host string) string {
	return strings.ReplaceAll(host, ".", "_")
}

// Config is the ordered list of configured locations.
type Config struct {
	Locations []Location
}

// Load reads the locations file, one user@host:path per line. Blank lines are
// skipped but still count toward line numbering, so -L addressing matches the
// file as the operator sees it.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	cfg := &Config{}
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		loc, err := Parse(line)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Line = i + 1
			}
			return nil, err
		}
		loc.Line = i + 1
		cfg.Locations = append(cfg.Locations, loc)
	}
	return cfg, nil
}

// ByLine returns the location configured at the given 1-based line number.
func (c *Config) ByLine(n int) (Location, error) {
	for _, loc := range c.Locations {
		if loc.Line == n {
			return loc, nil
		}
	}
	return Location{}, fmt.Errorf("no location configured at line %d", n)
}

// DistinctHosts returns the set of normalized hosts across all locations,
// sorted for deterministic iteration.
func (c *Config) DistinctHosts() []string {
	seen := map[string]struct{}{}
	for _, loc := range c.Locations {
		seen[NormalizeHost(loc.Host)] = struct{}{}
	}
	hosts := make([]string, 0, len(seen))
	for h := range seen {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// ByNormalizedHost returns the first location whose normalized host matches.
// Restore uses this to resolve a snapshot directory prefix back to a
// destination; first match wins when several locations share a host.
func (c *Config) ByNormalizedHost(host string) (Location, bool) {
	for _, loc := range c.Locations {
		if NormalizeHost(loc.Host) == host {
			return loc, true
		}
	}
	return Location{}, false
}
