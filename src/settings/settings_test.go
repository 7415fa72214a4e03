package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"remote-backup/src/settings"
)

func TestLoad_Defaults(t *testing.T) {
	st, err := settings.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if st.LocationsFile != "/etc/remote-backup/locations" {
		t.Fatalf("LocationsFile = %q", st.LocationsFile)
	}
	if st.SSHBinary != "ssh" || st.RsyncBinary != "rsync" {
		t.Fatalf("binaries = %q, %q", st.SSHBinary, st.RsyncBinary)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REMOTE_BACKUP_BACKUP_ROOT", "/mnt/nas/backups")
	t.Setenv("REMOTE_BACKUP_SSH_BINARY", "/usr/local/bin/ssh")
	st, err := settings.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if st.BackupRoot != "/mnt/nas/backups" {
		t.Fatalf("BackupRoot = %q", st.BackupRoot)
	}
	if st.SSHBinary != "/usr/local/bin/ssh" {
		t.Fatalf("SSHBinary = %q", st.SSHBinary)
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote-backup.yaml")
	content := "backup_root: /srv/backups\nledger_file: /srv/backups/checksums\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	st, err := settings.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if st.BackupRoot != "/srv/backups" {
		t.Fatalf("BackupRoot = %q", st.BackupRoot)
	}
	if st.LedgerFile != "/srv/backups/checksums" {
		t.Fatalf("LedgerFile = %q", st.LedgerFile)
	}
	// Keys absent from the file keep their defaults.
	if st.StagingDir != "/var/backups/remote-backup/.staging" {
		t.Fatalf("StagingDir = %q", st.StagingDir)
	}
}

func TestLoad_MissingExplicitConfigFails(t *testing.T) {
	if _, err := settings.Load("/nonexistent/remote-backup.yaml"); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
