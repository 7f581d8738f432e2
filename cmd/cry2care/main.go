package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"cry2care/internal/api"
	"cry2care/internal/capture"
	"cry2care/internal/config"
	"cry2care/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	apiURL     string
	configPath string
	skin       string

	// Loaded in PersistentPreRunE. cfg has the flag overrides applied;
	// fileCfg is the file as read.
	cfg     *config.Config
	fileCfg *config.Config
	logger  *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cry2care",
	Short: "cry2care - infant cry triage dashboard",
	Long: `cry2care is a terminal client for an infant-cry classification service.

It records or loads a WAV clip, submits it to the backend's /predict endpoint,
and shows the detected cause, confidence and distress severity alongside the
ward's event history. Entries above the distress threshold are raised as alerts.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		// The dashboard owns the terminal: it logs to files, and only in debug mode.
		if cmd == cmd.Root() {
			dir := cfg.Logging.Dir
			if dir == "" {
				dir = filepath.Join(filepath.Dir(resolvedConfigPath()), "logs")
			}
			if err := logging.Initialize(dir, cfg.Logging.DebugMode || verbose, cfg.Logging.Level); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			logger = logging.Get(logging.CategoryBoot)
			return nil
		}

		var err error
		logger, err = logging.NewConsole(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Backend base URL (default from config or CRY2CARE_API_URL)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&skin, "skin", "", "Dashboard skin: clinical or night")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(demoBackendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig() error {
	loaded, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}
	effective := flagOverrides().Apply(loaded)
	if err := effective.Validate(); err != nil {
		return err
	}
	fileCfg, cfg = loaded, effective
	return nil
}

// flagOverrides returns the config values set on the command line.
func flagOverrides() config.Overrides {
	return config.Overrides{APIURL: apiURL, Skin: skin}
}

func newClient() *api.Client {
	return api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.GetAPITimeout()),
		api.WithLogger(logging.Get(logging.CategoryAPI)),
	)
}

func newRecorder() *capture.ExecRecorder {
	return capture.NewExecRecorder(cfg.Capture.Tool, cfg.Capture.Device, cfg.Capture.SampleRate,
		logging.Get(logging.CategoryCapture))
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
