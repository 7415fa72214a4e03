package locations_test

import (
	"testing"

	"github.com/spf13/afero"

	"remote-backup/src/locations"
)

func TestParse_OK(t *testing.T) {
	loc, err := locations.Parse("alice@10.0.0.5:/data")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if loc.User != "alice" || loc.Host != "10.0.0.5" || loc.Path != "/data" {
		t.Fatalf("unexpected location: %#v", loc)
	}
	if loc.UserHost() != "alice@10.0.0.5" {
		t.Fatalf("UserHost = %q", loc.UserHost())
	}
	if loc.Basename() != "data" {
		t.Fatalf("Basename = %q", loc.Basename())
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"nouser",
		"@host:/p",
		"user@:/p",
		"user@host",
		"user@host:",
		"user@host:/p@th",
	}
	for _, raw := range cases {
		if _, err := locations.Parse(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestNormalizeHost(t *testing.T) {
	if got := locations.NormalizeHost("10.0.0.5"); got != "10_0_0_5" {
		t.Fatalf("NormalizeHost = %q", got)
	}
}

func writeConfig(t *testing.T, fs afero.Fs, content string) *locations.Config {
	t.Helper()
	if err := afero.WriteFile(fs, "/etc/locations", []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := locations.Load(fs, "/etc/locations")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func TestLoad_LineNumbersSurviveBlankLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := writeConfig(t, fs, "alice@10.0.0.5:/data\n\nbob@db.example.com:/var/lib/db\n")
	if len(cfg.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(cfg.Locations))
	}
	if _, err := cfg.ByLine(2); err == nil {
		t.Fatalf("expected error for blank line 2")
	}
	loc, err := cfg.ByLine(3)
	if err != nil {
		t.Fatalf("ByLine(3): %v", err)
	}
	if loc.Host != "db.example.com" {
		t.Fatalf("ByLine(3) host = %q", loc.Host)
	}
}

func TestLoad_MalformedLineReportsLineNumber(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "alice@10.0.0.5:/data\ngarbage\n"
	if err := afero.WriteFile(fs, "/etc/locations", []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := locations.Load(fs, "/etc/locations")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	pe, ok := err.(*locations.ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line != 2 {
		t.Fatalf("ParseError.Line = %d, want 2", pe.Line)
	}
}

func TestDistinctHosts_SortedAndDeduplicated(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := writeConfig(t, fs,
		"alice@web.example.com:/srv/www\n"+
			"bob@10.0.0.5:/data\n"+
			"carol@web.example.com:/etc/nginx\n")
	hosts := cfg.DistinctHosts()
	want := []string{"10_0_0_5", "web_example_com"}
	if len(hosts) != len(want) {
		t.Fatalf("hosts = %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Fatalf("hosts = %v, want %v", hosts, want)
		}
	}
}

func TestByNormalizedHost_FirstMatchWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := writeConfig(t, fs,
		"alice@web.example.com:/srv/www\n"+
			"carol@web.example.com:/etc/nginx\n")
	loc, ok := cfg.ByNormalizedHost("web_example_com")
	if !ok {
		t.Fatalf("expected a match")
	}
	if loc.Path != "/srv/www" {
		t.Fatalf("expected first match, got %q", loc.Path)
	}
	if _, ok := cfg.ByNormalizedHost("missing_host"); ok {
		t.Fatalf("expected no match for unknown host")
	}
}
