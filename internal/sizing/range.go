// Package sizing searches for a plausible sample-size range by sweeping the
// trial-design solver over increasing patient counts until extra patients
// stop buying meaningful reductions in trial duration.
package sizing

import (
	"fmt"
	"math"

	"TrialCompass/internal/solver"
)

// maxSteps bounds the sweep; a threshold that is never met is reported as a
// convergence failure rather than an endless scan.
const maxSteps = 500

// ComputeRange sweeps solver.ComputeTrial from a feasibility-derived seed
// upward in steps of delta, measuring the percentage reduction in trial
// duration at each step. The scan stops at the first step whose reduction
// falls below minPercChange, confirmed by the following step staying below
// it, and returns the inclusive range [nLow, nHigh] straddling that step.
// Any interior solve failure aborts the search.
func ComputeRange(p solver.Params, delta, minPercChange float64) (nLow, nHigh int, err error) {
	if !(delta > 0) {
		return 0, 0, fmt.Errorf("%w: delta %g must be positive", solver.ErrInvalidParameter, delta)
	}
	if !(minPercChange > 0) {
		return 0, 0, fmt.Errorf("%w: min_perc_change %g must be positive", solver.ErrInvalidParameter, minPercChange)
	}
	if p.GridPoints == 0 {
		p.GridPoints = solver.DefaultGridPoints
	}
	if p.Enrollment == nil {
		return 0, 0, fmt.Errorf("%w: enrollment model is required", solver.ErrInvalidParameter)
	}

	seed, err := seedPatients(&p, delta)
	if err != nil {
		return 0, 0, err
	}

	prevN := seed
	prevDur, err := trialDuration(p, prevN)
	if err != nil {
		return 0, 0, err
	}

	belowAt := 0 // patient count that ended the first below-threshold step
	belowFrom := 0
	target := float64(seed)
	for step := 1; step <= maxSteps; step++ {
		target += delta
		n := int(math.Ceil(target))
		if n <= prevN {
			n = prevN + 1
		}
		dur, err := trialDuration(p, n)
		if err != nil {
			return 0, 0, err
		}
		change := (prevDur - dur) / prevDur * 100
		if change < minPercChange {
			if belowAt != 0 {
				// Two consecutive slow steps: diminishing returns confirmed.
				return belowFrom, belowAt, nil
			}
			belowFrom, belowAt = prevN, n
		} else {
			belowAt = 0
		}
		prevN, prevDur = n, dur
	}
	return 0, 0, fmt.Errorf("%w: duration reduction never settled below %.2f%% within %d steps",
		solver.ErrNonConvergence, minPercChange, maxSteps)
}

// seedPatients picks the smallest multiple of delta that can actually supply
// the required events, so the first interior solve is feasible.
func seedPatients(p *solver.Params, delta float64) (int, error) {
	events, err := solver.RequiredEvents(*p)
	if err != nil {
		return 0, err
	}
	minPatients := events / solver.EventProbabilityLimit(p)
	seed := delta * math.Ceil(minPatients*1.05/delta)
	n := int(math.Ceil(seed))
	if n < 2 {
		n = 2
	}
	return n, nil
}

func trialDuration(p solver.Params, n int) (float64, error) {
	p.NPatients = n
	design, err := solver.ComputeTrial(p)
	if err != nil {
		return 0, fmt.Errorf("solve at n=%d: %w", n, err)
	}
	return design.TrialDuration, nil
}
