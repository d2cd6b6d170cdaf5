package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Juerd/syncaboutit/internal/config"
	"github.com/Juerd/syncaboutit/internal/daemon"
	"github.com/Juerd/syncaboutit/internal/executor"
	"github.com/Juerd/syncaboutit/internal/logging"
)

// fatalError marks a runtime failure after validation, mapped to exit
// code 255; everything else is an argument problem.
type fatalError struct {
	error
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		var ferr *fatalError
		if errors.As(err, &ferr) {
			// Log at fatal severity without logrus's own exit, which
			// would use status 1.
			logrus.StandardLogger().Log(logrus.FatalLevel, err)
			os.Exit(255)
		}
		fmt.Fprintln(os.Stderr, "syncaboutit:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "syncaboutit",
		Short: "Continuously mirror a directory tree to one or more destinations",
		Long: "syncaboutit watches a source directory for filesystem changes and " +
			"keeps one or more destinations (local paths or host:path targets) " +
			"mirrored by invoking rsync for each changed subtree.",
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			if err := run(cfg); err != nil {
				return &fatalError{err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Source, "from", "", "source directory (mandatory)")
	f.StringArrayVar(&cfg.Dests, "to", nil, "destination, local path or host:path (repeatable; none means debug-only)")
	f.BoolVar(&cfg.Debug, "debug", false, "verbose internal tracing (forces off --quiet)")
	f.BoolVar(&cfg.Daemon, "daemon", false, "detach from the controlling terminal")
	f.BoolVar(&cfg.Syslog, "syslog", false, "route log output to syslog (implicit under --daemon)")
	f.StringVar(&cfg.PIDFile, "pidfile", "", "write a PID file (absolute path, requires --daemon)")
	f.BoolVar(&cfg.Dry, "dry", false, "print the would-be commands instead of executing them")
	f.BoolVar(&cfg.Delete, "delete", false, "propagate deletions to the destinations")
	f.BoolVar(&cfg.Quiet, "quiet", false, "suppress informational output")
	f.StringArrayVar(&cfg.IgnorePatterns, "ignore", nil, "additional ignore pattern, a regular expression (repeatable)")
	f.BoolVar(&cfg.IgnoreTemp, "ignore-temp", false, "ignore temporary and editor swap files")
	f.BoolVar(&cfg.IgnoreDotfiles, "ignore-dotfiles", false, "ignore path segments beginning with a dot")
	f.BoolVar(&cfg.IgnoreBackups, "ignore-backups", false, "ignore backup files")
	f.BoolVar(&cfg.IgnoreLogs, "ignore-logs", false, "ignore log files and log directories")
	f.StringArrayVar(&cfg.RsyncExcludes, "rsync-exclude", nil, "pattern forwarded to rsync as --exclude (repeatable)")
	f.Float64Var(&cfg.Interval, "interval", 1.0, "quiescence threshold in seconds")
	f.IntVar(&cfg.FullSyncThreshold, "full-sync-threshold", 10, "sibling count at or above which a directory is synced recursively")

	return cmd
}

func run(cfg *config.Config) error {
	if cfg.Daemon && !daemon.Detached() {
		if err := daemon.Detach(); err != nil {
			return err
		}
		return nil
	}

	if err := logging.Setup(cfg.Debug, cfg.Quiet, cfg.Syslog); err != nil {
		return err
	}

	if cfg.Daemon && cfg.PIDFile != "" {
		pf, err := daemon.WritePIDFile(cfg.PIDFile)
		if err != nil {
			return err
		}
		defer pf.Remove()
	}

	ctx, stop := daemon.SignalContext(context.Background())
	defer stop()

	exec := executor.New(cfg.Source, cfg.Dests, cfg.RsyncExcludes, cfg.Delete, cfg.Debug, cfg.Dry)
	return daemon.New(cfg, exec).Run(ctx)
}
