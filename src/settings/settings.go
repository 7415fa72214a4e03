package settings

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Settings holds the resolved paths and tool names the orchestrators use.
type Settings struct {
	// LocationsFile lists the user@host:path sources, one per line.
	LocationsFile string
	// LedgerFile is the checksum registry ("<checksum> <basename>" lines).
	LedgerFile string
	// AuditLog receives the append-only phantom incident records.
	AuditLog string
	// BackupRoot holds the timestamped snapshot directories.
	BackupRoot string
	// StagingDir is cleared and repopulated on every restore.
	StagingDir string

	SSHBinary   string
	RsyncBinary string
}

// Load resolves settings from, in priority order: an explicit config file,
// a remote-backup.yaml found in the working directory or
// $HOME/.config/remote-backup, REMOTE_BACKUP_* environment variables, and
// built-in defaults.
func Load(configFile string) (Settings, error) {
	v := viper.New()
	v.SetDefault("locations_file", "/etc/remote-backup/locations")
	v.SetDefault("ledger_file", "/var/lib/remote-backup/checksums")
	v.SetDefault("audit_log", "/var/lib/remote-backup/phantoms.log")
	v.SetDefault("backup_root", "/var/backups/remote-backup")
	v.SetDefault("staging_dir", "/var/backups/remote-backup/.staging")
	v.SetDefault("ssh_binary", "ssh")
	v.SetDefault("rsync_binary", "rsync")

	v.SetEnvPrefix("REMOTE_BACKUP")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("remote-backup")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/remote-backup")
		var nf viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &nf) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	return Settings{
		LocationsFile: v.GetString("locations_file"),
		LedgerFile:    v.GetString("ledger_file"),
		AuditLog:      v.GetString("audit_log"),
		BackupRoot:    v.GetString("backup_root"),
		StagingDir:    v.GetString("staging_dir"),
		SSHBinary:     v.GetString("ssh_binary"),
		RsyncBinary:   v.GetString("rsync_binary"),
	}, nil
}
