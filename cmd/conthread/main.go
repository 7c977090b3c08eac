package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/conthread/internal/cliconfig"
	"github.com/bft-labs/conthread/internal/daemon"
	"github.com/bft-labs/conthread/pkg/log"
)

const helpDescription = `
Run a set of background sweeper threads with a guaranteed shutdown rendezvous.

Sweepers are created immediately but hold off until the initialization phase
completes. On SIGINT/SIGTERM (or after --run-for) every sweeper is asked to
terminate and the daemon waits for each of them to stop before exiting.

Configure via file ($HOME/.conthread/config.toml), CONTHREAD_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  conthread --workers 4 --interval 250ms
  conthread --metrics-addr :9100 --watch-config --config ./conthread.toml
  conthread --run-for 10s --native-priorities --priority 9
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "conthread:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "conthread",
		Short:         "Background worker threads with start barrier and stop rendezvous",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
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
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Env overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := cliconfig.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.Info("configuration",
				log.Int("workers", cfg.Workers),
				log.Int("priority", cfg.Priority),
				log.Duration("interval", cfg.Interval),
				log.Duration("init_delay", cfg.InitDelay),
				log.Duration("run_for", cfg.RunFor),
				log.Int("max_threads", cfg.MaxThreads),
				log.Bool("native_priorities", cfg.NativePriorities),
				log.String("metrics_addr", cfg.MetricsAddr),
				log.Bool("watch_config", cfg.WatchConfig),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return daemon.Run(ctx, daemon.Options{
				Config:     cfg,
				ConfigPath: cfgFile,
				Logger:     logger,
			})
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.conthread/config.toml)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of sweeper threads")
	f.IntVar(&cfg.Priority, "priority", cfg.Priority, "sweeper thread priority (1-11)")
	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "sweep interval")
	f.DurationVar(&cfg.InitDelay, "init-delay", cfg.InitDelay, "simulated initialization time before sweepers run")
	f.DurationVar(&cfg.RunFor, "run-for", cfg.RunFor, "stop after this long (0 runs until signalled)")
	f.IntVar(&cfg.MaxThreads, "max-threads", cfg.MaxThreads, "limit on live sweeper threads (0 = unlimited)")
	f.BoolVar(&cfg.NativePriorities, "native-priorities", cfg.NativePriorities, "apply priorities to OS threads (Linux nice values)")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics, /live and /ready on this address")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload the sweep interval when the config file changes")

	return root
}
