package spending

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidFunction indicates an unrecognized spending-function selector.
var ErrInvalidFunction = errors.New("invalid spending function")

// ErrMissingCustomSpend indicates a custom boundary was requested without a
// usable cumulative-spend sequence.
var ErrMissingCustomSpend = errors.New("missing custom alpha spend")

// Selector strings accepted by New.
const (
	SelectorLDOF   = "LDOF"
	SelectorCustom = "custom"
)

// Kind tags the spending-function family.
type Kind int

const (
	// LDOF is the Lan-DeMets O'Brien-Fleming-like family.
	LDOF Kind = iota
	// Custom is a caller-supplied cumulative spend schedule.
	Custom
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Fcn is an alpha-spending function: a non-decreasing map from information
// fraction t in (0,1] to the cumulative type-I error spent by t, with
// CumulativeSpend(1) equal to the overall alpha. Immutable once built.
type Fcn struct {
	kind  Kind
	alpha float64
	looks []float64
	spend []float64 // cumulative values, Custom only
}

// New resolves a selector string into a spending function. The same
// constructor serves the lower and the upper boundary. looks is the
// information-fraction schedule the function will be evaluated at;
// customSpend must hold exactly one cumulative value per look when the
// selector is "custom" and is ignored otherwise.
func New(selector string, alpha float64, looks, customSpend []float64) (*Fcn, error) {
	switch selector {
	case SelectorLDOF:
		return &Fcn{kind: LDOF, alpha: alpha}, nil
	case SelectorCustom:
		if len(customSpend) == 0 {
			return nil, fmt.Errorf("%w: selector %q requires a cumulative spend sequence",
				ErrMissingCustomSpend, selector)
		}
		if len(customSpend) != len(looks) {
			return nil, fmt.Errorf("%w: %d spend values for %d looks",
				ErrMissingCustomSpend, len(customSpend), len(looks))
		}
		if customSpend[0] < 0 {
			return nil, fmt.Errorf("%w: negative spend %g at look 1",
				ErrMissingCustomSpend, customSpend[0])
		}
		for i := 1; i < len(customSpend); i++ {
			if customSpend[i] < customSpend[i-1] {
				return nil, fmt.Errorf("%w: cumulative spend decreases at look %d (%g then %g)",
					ErrMissingCustomSpend, i+1, customSpend[i-1], customSpend[i])
			}
		}
		if final := customSpend[len(customSpend)-1]; math.Abs(final-alpha) > 1e-9 {
			return nil, fmt.Errorf("%w: final cumulative spend %g must equal alpha %g",
				ErrMissingCustomSpend, final, alpha)
		}
		return &Fcn{
			kind:  Custom,
			alpha: alpha,
			looks: append([]float64(nil), looks...),
			spend: append([]float64(nil), customSpend...),
		}, nil
	default:
		return nil, fmt.Errorf("%w: `%s`", ErrInvalidFunction, selector)
	}
}

// Alpha returns the overall alpha the function spends by t=1.
func (f *Fcn) Alpha() float64 { return f.alpha }

// CumulativeSpend returns the cumulative alpha spent by information
// fraction t. For custom schedules the supplied value is returned exactly at
// each supplied look fraction; between looks the last completed look's value
// applies.
func (f *Fcn) CumulativeSpend(t float64) float64 {
	if f.kind == Custom {
		s := 0.0
		for i, lf := range f.looks {
			if lf <= t {
				s = f.spend[i]
			}
		}
		return s
	}
	// Lan-DeMets O'Brien-Fleming approximation: conservative early, full
	// alpha at t=1.
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return f.alpha
	}
	z := stdNormal.Quantile(1 - f.alpha/2)
	return 2 * (1 - stdNormal.CDF(z/math.Sqrt(t)))
}

// Increments returns the per-look alpha spend implied by the schedule of
// information fractions, clipping tiny negative differences from floating
// point to zero.
func (f *Fcn) Increments(looks []float64) []float64 {
	incs := make([]float64, len(looks))
	prev := 0.0
	for i, t := range looks {
		cur := f.CumulativeSpend(t)
		inc := cur - prev
		if inc < 0 {
			inc = 0
		}
		incs[i] = inc
		prev = cur
	}
	return incs
}
