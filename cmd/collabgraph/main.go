package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/perrrseus/OpenSaga/internal/config"
	"github.com/perrrseus/OpenSaga/internal/logging"
	"github.com/perrrseus/OpenSaga/internal/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	format    string
	outputDir string
	writeOut  bool
	noStore   bool

	logger   *logrus.Logger
	cfg      *config.Config
	counters *telemetry.Metrics
	shutdown telemetry.ShutdownFunc
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "collabgraph",
	Short: "Collaboration graph analytics for developer networks",
	Long: `collabgraph builds weighted collaboration graphs from developer and
collaboration tables, scores developers by influence and centrality, detects
communities and tracks how the network evolves month by month.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		if format != "" {
			cfg.Output.Format = format
		}
		if outputDir != "" {
			cfg.Output.Directory = outputDir
		}
		if noStore {
			cfg.Storage.Type = "none"
		}

		result := cfg.Validate()
		for _, w := range result.Warnings {
			logger.Warn(w)
		}
		if result.HasErrors() {
			return result.Err()
		}

		logCfg := logging.DefaultConfig(verbose)
		if !verbose {
			logCfg.Level = logging.ParseLevel(cfg.Log.Level)
		}
		logCfg.OutputFile = cfg.Log.File
		logCfg.JSONFormat = cfg.Log.JSON
		if err := logging.Initialize(logCfg); err != nil {
			return err
		}

		counters = telemetry.NewMetrics()
		shutdown, err = telemetry.InitTracing(cmd.Context(), telemetry.TracingConfig{
			Exporter: cfg.Telemetry.TraceExporter,
			Version:  Version,
		})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer logging.Close()

		if shutdown != nil {
			if err := shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to flush traces")
			}
		}
		if counters != nil {
			if err := counters.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
				logger.WithError(err).Warn("Failed to write metrics")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .collabgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "output format: table, json, yaml, csv")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "directory for --write (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&writeOut, "write", "w", false, "write tables to files instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&noStore, "no-store", false, "do not persist this run")

	rootCmd.SetVersionTemplate(`collabgraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(evolveCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}
