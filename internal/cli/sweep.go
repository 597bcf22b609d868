package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fadhlan/unilog/internal/config"
	"github.com/fadhlan/unilog/internal/logger"
	"github.com/fadhlan/unilog/pkg/consolidate"
	"github.com/fadhlan/unilog/pkg/maintenance"
)

var sweepVerify bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one consolidation cycle and exit",
	Long: `Run one synchronous consolidation cycle over the watched directory,
migrating every stray found, then exit. Useful for cron jobs and for
repairing a directory without keeping the daemon running.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepVerify, "verify", false, "validate canonical records after the sweep")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	canonicalID, err := uuid.Parse(cfg.CanonicalID)
	if err != nil {
		return fmt.Errorf("invalid canonical identifier: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	engine, err := consolidate.New(consolidate.Config{
		Dir:         cfg.WatchDir,
		CanonicalID: canonicalID,
		Logger:      log.GetZerolog(),
	})
	if err != nil {
		return err
	}

	if err := engine.SweepNow(); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	stats := engine.Stats()
	fmt.Printf("Strays migrated: %d\n", stats.Corrections)
	fmt.Printf("Lines migrated: %d\n", stats.LinesMigrated)
	if stats.SkippedRaces > 0 {
		fmt.Printf("Skipped (vanished): %d\n", stats.SkippedRaces)
	}

	if !sweepVerify {
		return nil
	}

	svc, err := maintenance.New(maintenance.Config{
		Schedule: "0 3 * * *", // unused, verification only
		Sweeper:  engine,
		Store:    engine.Store(),
		Logger:   log.GetZerolog(),
	})
	if err != nil {
		return err
	}

	report, err := svc.VerifyCanonical()
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Printf("Canonical records: %d\n", report.Records)
	if report.Invalid > 0 || report.Malformed > 0 {
		fmt.Printf("Invalid records: %d\n", report.Invalid)
		fmt.Printf("Malformed lines: %d\n", report.Malformed)
	}

	return nil
}
