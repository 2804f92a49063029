package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"TrialCompass/internal/enrollment"
	"TrialCompass/internal/model"
	"TrialCompass/internal/spending"
)

// ErrInvalidParameter indicates a numeric input outside its admissible range.
var ErrInvalidParameter = errors.New("parameter out of range")

// ErrNonConvergence indicates a root finder exhausted its iteration budget.
var ErrNonConvergence = errors.New("root finding did not converge")

// DefaultGridPoints is the recommended integration resolution r.
const DefaultGridPoints = 32

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Params are the inputs to a single trial-design solve. Hazards are constant
// per arm; dropout applies to both arms as a competing risk.
type Params struct {
	NPatients int
	Alpha     float64 // one-sided type-I error
	Power     float64

	// Spending selectors: "" (no early stopping on that side),
	// spending.SelectorLDOF, or spending.SelectorCustom.
	LowerSpending string
	UpperSpending string

	// LookFractions are the information fractions of the analysis schedule;
	// nil means a single final analysis.
	LookFractions []float64

	PropTreated     float64
	HazardEventTrt  float64
	HazardEventCtrl float64
	HazardDropout   float64

	// CustomAlphaSpend supplies the cumulative spend per look when a
	// selector is "custom".
	CustomAlphaSpend []float64

	GridPoints int // integration resolution r; >= 16 advised
	Tol        float64

	Enrollment *enrollment.Model
}

func inOpenUnit(x float64) bool { return x > 0 && x < 1 }

// looks returns the analysis schedule, defaulting to a single final look.
func (p *Params) looks() []float64 {
	if len(p.LookFractions) == 0 {
		return []float64{1}
	}
	return p.LookFractions
}

// validate checks every numeric input. needTrial additionally requires the
// patient count and enrollment model, which the range search supplies later.
func (p *Params) validate(needTrial bool) error {
	if !inOpenUnit(p.Alpha) {
		return fmt.Errorf("%w: alpha %g must be in (0,1)", ErrInvalidParameter, p.Alpha)
	}
	if !inOpenUnit(p.Power) {
		return fmt.Errorf("%w: power %g must be in (0,1)", ErrInvalidParameter, p.Power)
	}
	if !inOpenUnit(p.PropTreated) {
		return fmt.Errorf("%w: prop_treated %g must be in (0,1)", ErrInvalidParameter, p.PropTreated)
	}
	if !(p.HazardEventTrt > 0) {
		return fmt.Errorf("%w: treatment event hazard %g must be positive", ErrInvalidParameter, p.HazardEventTrt)
	}
	if !(p.HazardEventCtrl > 0) {
		return fmt.Errorf("%w: control event hazard %g must be positive", ErrInvalidParameter, p.HazardEventCtrl)
	}
	if p.HazardEventTrt == p.HazardEventCtrl {
		return fmt.Errorf("%w: arm event hazards must differ", ErrInvalidParameter)
	}
	if p.HazardDropout < 0 || math.IsNaN(p.HazardDropout) {
		return fmt.Errorf("%w: dropout hazard %g must be >= 0", ErrInvalidParameter, p.HazardDropout)
	}
	if p.GridPoints < 1 {
		return fmt.Errorf("%w: grid resolution %d must be >= 1", ErrInvalidParameter, p.GridPoints)
	}
	if !(p.Tol > 0) {
		return fmt.Errorf("%w: tolerance %g must be positive", ErrInvalidParameter, p.Tol)
	}
	looks := p.looks()
	prev := 0.0
	for _, t := range looks {
		if !(t > prev) || t > 1 {
			return fmt.Errorf("%w: look fractions %v must be strictly increasing in (0,1]",
				ErrInvalidParameter, looks)
		}
		prev = t
	}
	if looks[len(looks)-1] != 1 {
		return fmt.Errorf("%w: final look fraction must be exactly 1, got %g",
			ErrInvalidParameter, looks[len(looks)-1])
	}
	if needTrial {
		if p.NPatients < 2 {
			return fmt.Errorf("%w: n_patients %d must be >= 2", ErrInvalidParameter, p.NPatients)
		}
		if p.Enrollment == nil {
			return fmt.Errorf("%w: enrollment model is required", ErrInvalidParameter)
		}
	}
	return nil
}

// effectSize is the absolute log hazard ratio driving the test statistic.
func effectSize(p *Params) float64 {
	return math.Abs(math.Log(p.HazardEventCtrl / p.HazardEventTrt))
}

// spendingFcn resolves one side's selector. An empty selector means no early
// stopping on that side.
func (p *Params) spendingFcn(selector string) (*spending.Fcn, error) {
	if selector == "" {
		return nil, nil
	}
	return spending.New(selector, p.Alpha, p.looks(), p.CustomAlphaSpend)
}

// solveRequiredEvents derives the stopping boundaries from the spending
// schedules under the null and root-finds the total event count whose
// upper-boundary crossing probability under the alternative matches the
// target power.
func solveRequiredEvents(p *Params) (d float64, upperZ, lowerZ []float64, err error) {
	looks := p.looks()

	upperFcn, err := p.spendingFcn(p.UpperSpending)
	if err != nil {
		return 0, nil, nil, err
	}
	lowerFcn, err := p.spendingFcn(p.LowerSpending)
	if err != nil {
		return 0, nil, nil, err
	}

	var upperInc []float64
	if upperFcn != nil {
		upperInc = upperFcn.Increments(looks)
	} else {
		// No upper spending schedule: the whole alpha is spent at the final
		// analysis, so there is no early efficacy stop.
		upperInc = make([]float64, len(looks))
		upperInc[len(upperInc)-1] = p.Alpha
	}
	var lowerInc []float64
	if lowerFcn != nil {
		lowerInc = lowerFcn.Increments(looks)
	}

	upperZ, lowerZ, err = solveBoundaries(looks, upperInc, lowerInc, p.GridPoints)
	if err != nil {
		return 0, nil, nil, err
	}

	theta := effectSize(p)
	pq := p.PropTreated * (1 - p.PropTreated)
	powerAt := func(d float64) float64 {
		pUp, _ := crossingProbs(looks, upperZ, lowerZ, theta*math.Sqrt(d*pq), p.GridPoints)
		total := 0.0
		for _, v := range pUp {
			total += v
		}
		return total
	}

	// Schoenfeld's fixed-design event count brackets the sequential
	// requirement.
	zAlpha := stdNormal.Quantile(1 - p.Alpha)
	zPower := stdNormal.Quantile(p.Power)
	dFixed := (zAlpha + zPower) * (zAlpha + zPower) / (pq * theta * theta)

	lo, hi := dFixed/4, dFixed
	for i := 0; powerAt(hi) < p.Power; i++ {
		if i >= 60 {
			return 0, nil, nil, fmt.Errorf("%w: power target %g not bracketed", ErrNonConvergence, p.Power)
		}
		lo = hi
		hi *= 2
	}
	for i := 0; powerAt(lo) >= p.Power; i++ {
		if i >= 60 {
			return 0, nil, nil, fmt.Errorf("%w: power target %g not bracketed from below", ErrNonConvergence, p.Power)
		}
		hi = lo
		lo /= 2
	}
	d, err = bisect(func(d float64) float64 { return powerAt(d) - p.Power }, lo, hi, p.Tol, 500)
	if err != nil {
		return 0, nil, nil, err
	}
	return d, upperZ, lowerZ, nil
}

// RequiredEvents solves the event requirement alone. It depends on the test
// geometry only, not on the patient count or the enrollment schedule.
func RequiredEvents(p Params) (float64, error) {
	if err := p.validate(false); err != nil {
		return 0, err
	}
	d, _, _, err := solveRequiredEvents(&p)
	return d, err
}

// ComputeTrial solves the full design for a fixed patient count: boundaries,
// required events, accrual and trial durations, and expected durations and
// sample sizes under the null and the alternative. All-or-nothing: on any
// failure no partial result is returned.
func ComputeTrial(p Params) (*model.TrialDesign, error) {
	if err := p.validate(true); err != nil {
		return nil, err
	}
	looks := p.looks()

	dReq, upperZ, lowerZ, err := solveRequiredEvents(&p)
	if err != nil {
		return nil, err
	}

	nPatients := float64(p.NPatients)
	maxEvents := nPatients * EventProbabilityLimit(&p)
	if dReq >= maxEvents {
		return nil, fmt.Errorf("%w: design requires %.1f events but %d patients can yield at most %.1f",
			enrollment.ErrUnreachable, dReq, p.NPatients, maxEvents)
	}

	accrualEnd, err := p.Enrollment.TimeForPatients(nPatients)
	if err != nil {
		return nil, err
	}

	trialDuration, err := solveEventTime(&p, accrualEnd, dReq)
	if err != nil {
		return nil, err
	}

	lookTimes := make([]float64, len(looks))
	for k, t := range looks {
		if t == 1 {
			lookTimes[k] = trialDuration
			continue
		}
		lt, err := solveEventTime(&p, accrualEnd, t*dReq)
		if err != nil {
			return nil, err
		}
		lookTimes[k] = lt
	}

	theta := effectSize(&p)
	pq := p.PropTreated * (1 - p.PropTreated)
	upH0, lowH0 := crossingProbs(looks, upperZ, lowerZ, 0, p.GridPoints)
	upH1, lowH1 := crossingProbs(looks, upperZ, lowerZ, theta*math.Sqrt(dReq*pq), p.GridPoints)
	stopH0 := stopProbs(upH0, lowH0)
	stopH1 := stopProbs(upH1, lowH1)

	design := &model.TrialDesign{
		AccrualDuration: math.Min(accrualEnd, trialDuration),
		TrialDuration:   trialDuration,
		NEvents:         dReq,
		NPatients:       p.NPatients,
		Looks:           make([]model.LookSummary, len(looks)),
	}
	for k, t := range looks {
		stopTime := lookTimes[k]
		accrualAt := math.Min(stopTime, accrualEnd)
		enrolledAt := math.Min(p.Enrollment.CumulativePatients(stopTime), nPatients)

		design.H0ExpectedTrialDuration += stopH0[k] * stopTime
		design.H1ExpectedTrialDuration += stopH1[k] * stopTime
		design.H0ExpectedAccrualDuration += stopH0[k] * accrualAt
		design.H1ExpectedAccrualDuration += stopH1[k] * accrualAt
		design.H0ExpectedSampleSize += stopH0[k] * enrolledAt
		design.H1ExpectedSampleSize += stopH1[k] * enrolledAt

		design.Looks[k] = model.LookSummary{
			Fraction:     t,
			CalendarTime: stopTime,
			Events:       t * dReq,
			UpperZ:       upperZ[k],
			LowerZ:       lowerZ[k],
			H0StopProb:   stopH0[k],
			H1StopProb:   stopH1[k],
		}
	}
	return design, nil
}

// stopProbs turns per-look crossing probabilities into stop probabilities:
// interim looks stop on a boundary crossing, the final look stops always.
func stopProbs(pUp, pLow []float64) []float64 {
	last := len(pUp) - 1
	out := make([]float64, len(pUp))
	cum := 0.0
	for k := 0; k < last; k++ {
		out[k] = pUp[k] + pLow[k]
		cum += out[k]
	}
	out[last] = 1 - cum
	if out[last] < 0 {
		out[last] = 0
	}
	return out
}
