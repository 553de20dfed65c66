package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	baselinemanager "github.com/s3studio/baseline-manager"
	"github.com/s3studio/baseline-manager/internal/cliconfig"
	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/plugins/slotcleanup"
	"github.com/s3studio/baseline-manager/plugins/slotwatcher"
)

const helpDescription = `
Edit the persisted configuration of the baseline checker.

Highlights:
  - Keeps output options, provider profiles, listors and baselines in the
    "conf-store" slot and editor preferences in the "ui-store" slot.
  - Every change is written through immediately; a restart picks up exactly
    where the last command left off.
  - Stores slots as JSON files, in a SQLite database, or in memory.
  - Imports and exports the checker's YAML configuration.
`

var exampleUsage = strings.TrimSpace(`
  baseline-manager show conf
  baseline-manager option set output_format json
  baseline-manager listor add --cloud-type aliyun --rs-type ecs
  baseline-manager export -o conf.yaml
  baseline-manager --backend sqlite import conf.yaml
  baseline-manager watch
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the resolved configuration to subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

// loadConfig layers the config file, the environment and the changed flags
// onto a.cfg, in increasing precedence.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if err := cliconfig.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	// Environment overrides the file but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = cliconfig.Logger(a.cfg, os.Stderr)
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}

// open binds the stores on the configured backend.
func (a *app) open(ctx context.Context, watch bool) (*baselinemanager.Instance, error) {
	return baselinemanager.Open(ctx, baselinemanager.Config{
		Backend:        a.cfg.Backend,
		StorageDir:     a.cfg.StorageDir,
		SQLitePath:     a.cfg.SQLitePath,
		DiscardInvalid: a.cfg.DiscardInvalid,
		Watch:          watch,
		WatchConfig:    slotwatcher.Config{DebounceDelay: a.cfg.WatchDebounce},
		Cleanup:        watch,
		CleanupConfig:  slotcleanup.DefaultConfig(),
		Logger:         log.NewZerologAdapterWithLogger(a.log),
	})
}

// withInstance opens the stores, runs fn and closes them again.
func (a *app) withInstance(cmd *cobra.Command, fn func(ctx context.Context, inst *baselinemanager.Instance) error) error {
	ctx := cmd.Context()
	inst, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	runErr := fn(ctx, inst)
	if err := inst.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "baseline-manager",
		Short:         "Edit the persisted configuration of the baseline checker",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.baseline-manager/config.toml)")
	flags.StringVar(&a.cfg.Backend, "backend", a.cfg.Backend, "slot storage backend: file, sqlite or memory")
	flags.StringVar(&a.cfg.StorageDir, "storage-dir", a.cfg.StorageDir, "directory holding slot files (default: $HOME/.baseline-manager/slots)")
	flags.StringVar(&a.cfg.SQLitePath, "sqlite-path", a.cfg.SQLitePath, "SQLite database file (default: $HOME/.baseline-manager/slots.db)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level: debug, info, warn or error")
	flags.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format: console or json")
	flags.BoolVar(&a.cfg.DiscardInvalid, "discard-invalid", a.cfg.DiscardInvalid, "replace unreadable snapshots with defaults instead of failing")

	root.AddCommand(
		newShowCommand(a),
		newResetCommand(a),
		newUICommand(a),
		newOptionCommand(a),
		newProfileCommand(a),
		newListorCommand(a),
		newBaselineCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newWatchCommand(a),
	)
	return root
}

func main() {
	a := &app{cfg: cliconfig.DefaultConfig()}
	a.log = cliconfig.Logger(a.cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		a.log.Error().Err(err).Msg("baseline-manager")
		stop()
		os.Exit(1)
	}
}
