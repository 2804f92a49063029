package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"

	"TrialCompass/internal/config"
	"TrialCompass/internal/enrollment"
	"TrialCompass/internal/recorder"
	"TrialCompass/internal/report"
	"TrialCompass/internal/sizing"
	"TrialCompass/internal/solver"

	"github.com/robfig/cron/v3"
)

// Scheduler re-evaluates the scenario file on a cron schedule, so a team
// that keeps enrollment actuals and hazard estimates up to date in the file
// gets a refreshed design history without manual runs.
type Scheduler struct {
	Cron       *cron.Cron
	ConfigPath string
	Recorder   recorder.Recorder
	Ctx        context.Context
}

// NewScheduler creates a new Scheduler. The scenario file is re-read on
// every run, so edits between ticks are picked up.
func NewScheduler(ctx context.Context, configPath string, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		ConfigPath: configPath,
		Recorder:   rec,
		Ctx:        ctx,
	}
}

// Register installs the recompute task.
func (s *Scheduler) Register(recomputeCron string) error {
	if _, err := s.Cron.AddFunc(recomputeCron, s.recomputeTask); err != nil {
		return fmt.Errorf("register recompute task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the recompute task immediately (one-shot mode / startup).
// It returns an error if any scenario failed, after attempting all of them.
func (s *Scheduler) RunNow() error {
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	failed := 0
	for i := range cfg.Scenarios {
		if err := s.evaluateScenario(&cfg.Scenarios[i]); err != nil {
			log.Printf("[ERROR] scenario %q: %v", cfg.Scenarios[i].Name, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(cfg.Scenarios))
	}
	return nil
}

func (s *Scheduler) recomputeTask() {
	if s.Ctx.Err() != nil {
		return
	}
	log.Println("[INFO] running scheduled recompute")
	if err := s.RunNow(); err != nil {
		log.Printf("[ERROR] scheduled recompute: %v", err)
	}
}

// evaluateScenario solves one scenario, prints its report, and records it.
func (s *Scheduler) evaluateScenario(sc *config.Scenario) error {
	enroll, err := enrollment.New(sc.EnrollmentTimes, sc.EnrollmentRates)
	if err != nil {
		return err
	}
	params := solver.Params{
		NPatients:        sc.NPatients,
		Alpha:            sc.Alpha,
		Power:            sc.Power,
		LowerSpending:    sc.LowerSpending,
		UpperSpending:    sc.UpperSpending,
		LookFractions:    sc.LookFractions,
		PropTreated:      sc.PropTreated,
		HazardEventTrt:   sc.HazardEventTreatment,
		HazardEventCtrl:  sc.HazardEventControl,
		HazardDropout:    sc.HazardDropout,
		CustomAlphaSpend: sc.CustomAlphaSpend,
		GridPoints:       sc.GridPoints,
		Tol:              sc.Tolerance,
		Enrollment:       enroll,
	}

	if sc.NPatients > 0 {
		design, err := solver.ComputeTrial(params)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, report.FormatDesign(sc.Name, design))
		if err := s.Recorder.RecordDesign(&recorder.DesignRecord{
			Scenario: sc.Name,
			Design:   design,
		}); err != nil {
			log.Printf("[ERROR] record design %q: %v", sc.Name, err)
		}
	}

	if sc.RangeSearch.Enabled {
		nLow, nHigh, err := sizing.ComputeRange(params, sc.RangeSearch.Delta, sc.RangeSearch.MinPercChange)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, report.FormatRange(sc.Name, nLow, nHigh, sc.RangeSearch.MinPercChange))
		if err := s.Recorder.RecordRange(&recorder.RangeRecord{
			Scenario:      sc.Name,
			NLow:          nLow,
			NHigh:         nHigh,
			Delta:         sc.RangeSearch.Delta,
			MinPercChange: sc.RangeSearch.MinPercChange,
		}); err != nil {
			log.Printf("[ERROR] record range %q: %v", sc.Name, err)
		}
	}

	return nil
}
