// Package maintenance runs scheduled deep sweeps and canonical-file
// verification on top of the continuous watch loop.
package maintenance

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/fadhlan/unilog/internal/observability"
	"github.com/fadhlan/unilog/pkg/canonical"
)

// recordSchema is the shape every consolidated line is expected to have. A
// line that fails validation is reported, never rewritten: verification is
// read-only.
const recordSchema = `{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {
			"type": "string",
			"pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$"
		}
	}
}`

// Sweeper runs one synchronous detection cycle.
type Sweeper interface {
	SweepNow() error
}

// VerifyReport summarizes one canonical-file verification.
type VerifyReport struct {
	Records   int `json:"records"`
	Invalid   int `json:"invalid"`
	Malformed int `json:"malformed"`
}

// Service schedules periodic deep sweeps of the watched directory.
type Service struct {
	schedule string
	sweeper  Sweeper
	store    *canonical.Store
	cron     *cron.Cron
	entryID  cron.EntryID
	schema   *gojsonschema.Schema
	logger   zerolog.Logger
}

// Config holds maintenance configuration.
type Config struct {
	// Schedule is a five-field cron expression.
	Schedule string
	Sweeper  Sweeper
	Store    *canonical.Store
	Logger   zerolog.Logger
}

// New creates a maintenance service. The schedule is validated eagerly so a
// bad expression fails at startup, not at first fire.
func New(cfg Config) (*Service, error) {
	observability.EnsureRegistered()

	if cfg.Schedule == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	if cfg.Sweeper == nil {
		return nil, fmt.Errorf("sweeper is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("canonical store is required")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile record schema: %w", err)
	}

	return &Service{
		schedule: cfg.Schedule,
		sweeper:  cfg.Sweeper,
		store:    cfg.Store,
		cron:     cron.New(cron.WithParser(parser)),
		schema:   schema,
		logger:   cfg.Logger,
	}, nil
}

// Start begins the scheduled deep sweeps.
func (s *Service) Start() error {
	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.DeepSweep(); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled deep sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule deep sweep: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()

	s.logger.Info().Str("schedule", s.schedule).Msg("Maintenance service started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance service stopped")
}

// DeepSweep runs one full cycle followed by canonical-file verification.
func (s *Service) DeepSweep() (VerifyReport, error) {
	if err := s.sweeper.SweepNow(); err != nil {
		return VerifyReport{}, fmt.Errorf("sweep failed: %w", err)
	}
	return s.VerifyCanonical()
}

// VerifyCanonical validates every decodable canonical line against the
// expected record shape and reports the totals.
func (s *Service) VerifyCanonical() (VerifyReport, error) {
	records, malformed, err := s.store.Load()
	if err != nil {
		return VerifyReport{}, fmt.Errorf("failed to load canonical file: %w", err)
	}

	report := VerifyReport{
		Records:   len(records),
		Malformed: malformed,
	}

	for i, rec := range records {
		result, err := s.schema.Validate(gojsonschema.NewBytesLoader(rec.Raw()))
		if err != nil {
			return VerifyReport{}, fmt.Errorf("failed to validate record %d: %w", i+1, err)
		}
		if !result.Valid() {
			report.Invalid++
			s.logger.Warn().
				Int("record", i+1).
				Str("session_id", rec.SessionID).
				Msg("Canonical record failed verification")
		}
	}

	observability.SetCanonicalLines(report.Records)

	s.logger.Debug().
		Int("records", report.Records).
		Int("invalid", report.Invalid).
		Int("malformed", report.Malformed).
		Msg("Canonical verification complete")

	return report, nil
}
