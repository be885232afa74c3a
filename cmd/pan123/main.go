package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pan123/pkg/client"
	"pan123/pkg/config"
	"pan123/pkg/metrics"
	"pan123/pkg/types"
)

const version = "0.3.0"

var (
	configFile string
	verbose    bool
	baseURL    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pan123",
		Short: "Command-line client for 123pan cloud storage",
		Long: `Browse, upload, download and share files on a 123pan account.
Credentials, the bearer token and the device identity are kept in the config file.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override the service base URL")

	rootCmd.AddCommand(
		loginCmd(),
		lsCmd(),
		uploadCmd(),
		downloadCmd(),
		linkCmd(),
		mkdirCmd(),
		rmCmd(),
		trashCmd(),
		restoreCmd(),
		shareCmd(),
		shellCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pan123 v%s\n", version)
		},
	}
}

// setupLogger logs to stderr and to the log file next to the config.
func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logPath := logFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
		config.OutputPaths = []string{"stderr", logPath}
	}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func logFilePath() string {
	if configFile != "" {
		return filepath.Join(filepath.Dir(configFile), "123pan.log")
	}
	return config.GetLogPath()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type sessionOptions struct {
	metrics *metrics.Metrics
	// prompt answers overwrite and conflict questions; stdin by default.
	prompt *prompter
	// skipOpen builds the session without signing in or listing.
	skipOpen bool
	// folder, when non-zero, is entered after the root listing.
	folder int64
}

// openSession builds a session from the config file and brings it to the
// requested folder.
func openSession(ctx context.Context, logger *zap.Logger, opts sessionOptions) (*client.Session, error) {
	prompt := opts.prompt
	if prompt == nil {
		prompt = newPrompter(os.Stdin, os.Stdout)
	}

	s, err := client.New(client.Options{
		Store:      config.NewFileStore(configFile),
		BaseURL:    baseURL,
		Logger:     logger,
		Metrics:    opts.metrics,
		Confirm:    prompt.confirmOverwrite,
		OnConflict: prompt.resolveConflict,
		OnThrottle: func(have, total int64) {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("Large folder, fetched %d of %d entries, pausing...", have, total)))
		},
	})
	if err != nil {
		return nil, err
	}
	if opts.skipOpen {
		return s, nil
	}

	if _, err := s.Open(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if opts.folder != 0 {
		if _, err := s.Navigator().EnterByID(ctx, types.FileID(opts.folder)); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open folder %d: %w", opts.folder, err)
		}
	}
	return s, nil
}

// newMetrics returns instruments on a private registry, so the CLI never
// touches the global one.
func newMetrics() (*metrics.Metrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	return metrics.New(registry), registry
}
