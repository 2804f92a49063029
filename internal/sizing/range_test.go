package sizing

import (
	"errors"
	"testing"

	"TrialCompass/internal/enrollment"
	"TrialCompass/internal/solver"
	"TrialCompass/internal/spending"
)

func searchParams(t *testing.T) solver.Params {
	t.Helper()
	m, err := enrollment.New([]float64{0}, []float64{10})
	if err != nil {
		t.Fatalf("enrollment.New: %v", err)
	}
	return solver.Params{
		Alpha:           0.025,
		Power:           0.9,
		PropTreated:     0.5,
		HazardEventTrt:  0.02,
		HazardEventCtrl: 0.04,
		GridPoints:      8,
		Tol:             1e-4,
		Enrollment:      m,
	}
}

func TestComputeRange_DiminishingReturns(t *testing.T) {
	p := searchParams(t)
	delta, minPerc := 50.0, 5.0

	nLow, nHigh, err := ComputeRange(p, delta, minPerc)
	if err != nil {
		t.Fatalf("ComputeRange: %v", err)
	}
	if nLow > nHigh {
		t.Fatalf("postcondition violated: n_low %d > n_high %d", nLow, nHigh)
	}
	if nLow <= 0 {
		t.Fatalf("n_low should be positive, got %d", nLow)
	}

	// The duration change across the returned range is itself below the
	// threshold.
	p.NPatients = nLow
	low, err := solver.ComputeTrial(p)
	if err != nil {
		t.Fatalf("ComputeTrial at n_low: %v", err)
	}
	p.NPatients = nHigh
	high, err := solver.ComputeTrial(p)
	if err != nil {
		t.Fatalf("ComputeTrial at n_high: %v", err)
	}
	change := (low.TrialDuration - high.TrialDuration) / low.TrialDuration * 100
	if change >= minPerc {
		t.Errorf("duration change %.2f%% between n_low and n_high should be below %.2f%%",
			change, minPerc)
	}
}

func TestComputeRange_InvalidSearchParams(t *testing.T) {
	p := searchParams(t)
	if _, _, err := ComputeRange(p, 0, 5); !errors.Is(err, solver.ErrInvalidParameter) {
		t.Errorf("delta=0: expected ErrInvalidParameter, got %v", err)
	}
	if _, _, err := ComputeRange(p, 25, -1); !errors.Is(err, solver.ErrInvalidParameter) {
		t.Errorf("min_perc_change=-1: expected ErrInvalidParameter, got %v", err)
	}
}

func TestComputeRange_PropagatesSolverFailure(t *testing.T) {
	p := searchParams(t)
	p.UpperSpending = spending.SelectorCustom // no custom_alpha_spend given

	_, _, err := ComputeRange(p, 25, 2)
	if !errors.Is(err, spending.ErrMissingCustomSpend) {
		t.Errorf("expected ErrMissingCustomSpend, got %v", err)
	}
}
