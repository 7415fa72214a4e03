package snapshot_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"remote-backup/src/ledger"
	"remote-backup/src/locations"
	"remote-backup/src/remoteshell"
	"remote-backup/src/snapshot"
)

func testLocation(t *testing.T) locations.Location {
	t.Helper()
	loc, err := locations.Parse("alice@10.0.0.5:/data")
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	return loc
}

func TestSnapshot_UpsertsRemoteChecksums(t *testing.T) {
	fs := afero.NewMemMapFs()
	led, err := ledger.Load(fs, "/state/checksums")
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	fake := remoteshell.NewFake()
	fake.RunFunc = func(target, command string) (string, error) {
		if target != "alice@10.0.0.5" {
			t.Fatalf("unexpected target %q", target)
		}
		switch {
		case strings.HasPrefix(command, "find "):
			return "/data/a.txt\n/data/sub/b.txt\n", nil
		case strings.Contains(command, "a.txt"):
			return "sum-a  /data/a.txt\n", nil
		case strings.Contains(command, "b.txt"):
			return "sum-b  /data/sub/b.txt\n", nil
		}
		t.Fatalf("unexpected command %q", command)
		return "", nil
	}

	s := snapshot.Snapshotter{Transport: fake, Ledger: led, Log: zerolog.Nop()}
	if err := s.Snapshot(context.Background(), testLocation(t)); err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	if got, _ := led.Lookup("a.txt"); got != "sum-a" {
		t.Fatalf("a.txt checksum = %q", got)
	}
	if got, _ := led.Lookup("b.txt"); got != "sum-b" {
		t.Fatalf("b.txt checksum = %q", got)
	}
	// One enumeration plus one checksum invocation per file.
	if runs := fake.CallsOf("run"); len(runs) != 3 {
		t.Fatalf("expected 3 remote commands, got %d", len(runs))
	}
	// Ledger persisted to disk.
	data, err := afero.ReadFile(fs, "/state/checksums")
	if err != nil {
		t.Fatalf("ledger not saved: %v", err)
	}
	if !strings.Contains(string(data), "sum-a a.txt") {
		t.Fatalf("saved ledger missing entry:\n%s", data)
	}
}

func TestSnapshot_EnumerationFailureIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	led, err := ledger.Load(fs, "/state/checksums")
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	fake := remoteshell.NewFake()
	fake.RunFunc = func(target, command string) (string, error) {
		return "", &remoteshell.UnreachableError{Target: target}
	}

	s := snapshot.Snapshotter{Transport: fake, Ledger: led, Log: zerolog.Nop()}
	err = s.Snapshot(context.Background(), testLocation(t))
	if err == nil {
		t.Fatalf("expected error")
	}
	var ue *remoteshell.UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError in chain, got %v", err)
	}
	if ok, _ := afero.Exists(fs, "/state/checksums"); ok {
		t.Fatalf("ledger should not be written on enumeration failure")
	}
}

func TestSnapshot_EmptyRemoteDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	led, _ := ledger.Load(fs, "/state/checksums")
	fake := remoteshell.NewFake()
	fake.RunFunc = func(target, command string) (string, error) { return "", nil }

	s := snapshot.Snapshotter{Transport: fake, Ledger: led, Log: zerolog.Nop()}
	if err := s.Snapshot(context.Background(), testLocation(t)); err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if led.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d entries", led.Len())
	}
}
