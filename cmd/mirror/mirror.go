package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/daemon"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
	"github.com/sidkik/dirmirror/pkg/synclog"
)

// Mocked for unit testing.
var (
	stdout            io.Writer = os.Stdout
	parseMirrorConfig           = config.ParseMirror
)

type options struct {
	configPath string
	once       bool

	// flags holds the values set on the command line. They take precedence
	// over the config file.
	flags config.Mirror
}

// New creates the command that runs the mirroring daemon.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "dirmirror",
		Short: "Keep a backup folder identical to a resource folder",
		Long: "Periodically mirror the resource folder into the backup folder.\n\n" +
			"Files are compared by content hash, so only files that actually changed\n" +
			"are copied. Entries that no longer exist in the resource folder are\n" +
			"removed from the backup folder. Every change is logged to the console\n" +
			"and to the log file.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			cfg, err := loadConfig(opts)
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(cfg, opts.once); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&opts.flags.LogFile, "log-file", "",
		"Path to the log file. Parent directories are created if needed.")
	cmd.Flags().StringVar(&opts.flags.ResourceFolder, "resource-folder", "",
		"Path to the folder to mirror. It must exist.")
	cmd.Flags().StringVar(&opts.flags.BackupFolder, "backup-folder", "",
		"Path to the folder to mirror into. It must exist.")
	cmd.Flags().IntVar(&opts.flags.SyncInterval, "sync-interval", 0,
		"Interval (in seconds) between the end of a synchronization and the start of the next.")
	cmd.Flags().StringSliceVar(&opts.flags.Exclude, "exclude", nil,
		"Glob pattern, relative to the folders, of paths that aren't mirrored. "+
			"May be repeated.")
	cmd.Flags().StringVar(&opts.flags.Hash, "hash", "",
		fmt.Sprintf("Hash algorithm used to compare files: sha512, md5 or blake2b. "+
			"Defaults to %s.", sync.DefaultHashAlgorithm))
	cmd.Flags().StringVar(&opts.configPath, "config", "",
		"Optional YAML file with the same settings. Flags take precedence.")
	cmd.Flags().BoolVar(&opts.once, "once", false,
		"Run a single synchronization and exit.")
	return cmd
}

// loadConfig combines the config file and the command line flags, and
// checks that the result is usable.
func loadConfig(opts options) (config.Mirror, error) {
	var cfg config.Mirror
	if opts.configPath != "" {
		fileCfg, err := parseMirrorConfig(opts.configPath)
		if err != nil {
			return config.Mirror{}, errors.WithContext(err, "read config file")
		}
		cfg = fileCfg
	}

	cfg = cfg.Merge(opts.flags)
	if err := cfg.ExpandPaths(); err != nil {
		return config.Mirror{}, errors.WithContext(err, "expand paths")
	}

	if err := cfg.Validate(); err != nil {
		if missing, ok := err.(errors.MissingFieldError); ok {
			return config.Mirror{}, errors.NewFriendlyError(
				"Missing required option --%s. It can be set either on the "+
					"command line, or in the file passed to --config.", missing.Field)
		}
		return config.Mirror{}, errors.WithContext(err, "validate config")
	}
	return cfg, nil
}

func run(cfg config.Mirror, once bool) error {
	logger, logFile, err := synclog.Open(cfg.LogFile, stdout, util.Verbose())
	if err != nil {
		return errors.WithContext(err, "open log")
	}
	defer logFile.Close()

	log := synclog.New(logger)
	log.Info("Program started successfully with arguments:")
	log.Infof("Logfile: %s", cfg.LogFile)
	log.Infof("Resource Folder: %s", cfg.ResourceFolder)
	log.Infof("Backup Folder: %s", cfg.BackupFolder)
	log.Infof("Sync Interval: %d seconds", cfg.SyncInterval)
	if len(cfg.Exclude) != 0 {
		log.Infof("Exclude: %s", strings.Join(cfg.Exclude, ", "))
	}

	mirror := sync.Mirror{
		Reconciler: sync.NewReconciler(log, cfg.SyncOptions()),
		Source:     cfg.ResourceFolder,
		Dest:       cfg.BackupFolder,
	}
	d := daemon.New(log, mirror, cfg.Interval())

	if once {
		stats, err := d.RunOnce()
		if err != nil {
			return errors.WithContext(err, "synchronize")
		}
		if stats.Errors != 0 {
			return errors.NewFriendlyError("Synchronization finished with %d errors. "+
				"See %s for details.", stats.Errors, cfg.LogFile)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	d.Run(ctx)
	return nil
}
