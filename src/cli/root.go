package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"remote-backup/src/backup"
	"remote-backup/src/locations"
	"remote-backup/src/remoteshell"
	"remote-backup/src/restore"
	"remote-backup/src/safety"
	"remote-backup/src/settings"
)

// NewRootCmd returns the root cobra command for the remote-backup CLI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		doBackup   bool
		doRestore  bool
		line       int
		dryRun     bool
		configFile string
	)
	cmd := &cobra.Command{
		Use:   "remote-backup [-B | -R [rank]] [-L line]",
		Short: "Back up and restore remote locations with checksum verification",
		Long: `remote-backup copies user@host:path locations into timestamped local
snapshots over ssh/rsync, verifying file checksums before and after transfer.
Files whose checksum drifted are quarantined with a .phantom suffix.

With no flags it lists the configured locations.

WARNING: restore (-R) clears the destination path on the remote host without
prompting before pushing the chosen snapshot back.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if doBackup && doRestore {
				return errors.New("-B and -R are mutually exclusive")
			}
			rank := 1
			if len(args) == 1 {
				if !doRestore {
					return fmt.Errorf("unexpected argument %q (a rank is only valid with -R)", args[0])
				}
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid restore rank %q: expected a positive integer", args[0])
				}
				rank = n
			}
			if line < 0 {
				return fmt.Errorf("invalid line number %d", line)
			}
			if line > 0 && !doBackup && !doRestore {
				return errors.New("-L requires -B or -R")
			}

			st, err := settings.Load(configFile)
			if err != nil {
				return err
			}
			fs := appFs
			cfg, err := locations.Load(fs, st.LocationsFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			opts := safety.Options{DryRun: dryRun}
			transport := newTransport(st, stdout)

			switch {
			case doBackup:
				orch := backup.Orchestrator{
					Transport: transport,
					Fs:        fs,
					Settings:  st,
					Opts:      opts,
					Log:       log.Logger,
					Stdout:    stdout,
					Now:       time.Now,
				}
				if line > 0 {
					loc, err := cfg.ByLine(line)
					if err != nil {
						return err
					}
					_, err = orch.Location(ctx, loc)
					return err
				}
				return orch.All(ctx, cfg)
			case doRestore:
				orch := restore.Orchestrator{
					Transport: transport,
					Fs:        fs,
					Settings:  st,
					Opts:      opts,
					Log:       log.Logger,
					Stdout:    stdout,
				}
				return orch.Restore(ctx, rank, line, cfg)
			default:
				for _, loc := range cfg.Locations {
					fmt.Fprintf(stdout, "%d: %s\n", loc.Line, loc.Raw)
				}
				return nil
			}
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().BoolVarP(&doBackup, "backup", "B", false, "Back up all locations, or one with -L")
	cmd.Flags().BoolVarP(&doRestore, "restore", "R", false, "Restore a backup by recency rank (optional argument, default 1)")
	cmd.Flags().IntVarP(&line, "line", "L", 0, "1-based locations-file line to operate on")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a remote-backup settings file")

	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// Execute runs the CLI with the process stdio and returns the exit code.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// appFs and newTransport are swapped out by tests.
var appFs afero.Fs = afero.NewOsFs()

var newTransport = func(st settings.Settings, out io.Writer) remoteshell.Transport {
	return remoteshell.NewExecTransport(st.SSHBinary, st.RsyncBinary, out)
}

// SetFsForTest replaces the filesystem the CLI wires into orchestrators and
// returns a restore func.
func SetFsForTest(fs afero.Fs) func() {
	prev := appFs
	appFs = fs
	return func() { appFs = prev }
}

// SetTransportForTest replaces the transport factory and returns a restore
// func.
func SetTransportForTest(t remoteshell.Transport) func() {
	prev := newTransport
	newTransport = func(settings.Settings, io.Writer) remoteshell.Transport { return t }
	return func() { newTransport = prev }
}
