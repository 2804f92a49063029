package enrollment

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidModel indicates malformed enrollment times/rates.
var ErrInvalidModel = errors.New("invalid enrollment model")

// ErrUnreachable indicates the schedule can never enroll the requested count.
var ErrUnreachable = errors.New("enrollment target unreachable")

// Model is a piecewise-constant enrollment-rate schedule. times[i] marks the
// start of segment i; rates[i] applies from times[i] until the next
// breakpoint, and the last rate extends indefinitely. Immutable once built.
type Model struct {
	times []float64
	rates []float64
}

// Segment is one constant-rate span of the schedule. End is +Inf for the
// terminal segment.
type Segment struct {
	Start float64
	End   float64
	Rate  float64
}

// New validates and builds an enrollment model.
func New(times, rates []float64) (*Model, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrInvalidModel)
	}
	if len(times) != len(rates) {
		return nil, fmt.Errorf("%w: %d times vs %d rates", ErrInvalidModel, len(times), len(rates))
	}
	if times[0] < 0 || math.IsNaN(times[0]) {
		return nil, fmt.Errorf("%w: first breakpoint %g must be >= 0", ErrInvalidModel, times[0])
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return nil, fmt.Errorf("%w: breakpoints must be strictly increasing (%g then %g)",
				ErrInvalidModel, times[i-1], times[i])
		}
	}
	for i, r := range rates {
		if r < 0 || math.IsNaN(r) {
			return nil, fmt.Errorf("%w: negative rate %g at segment %d", ErrInvalidModel, r, i)
		}
	}
	return &Model{
		times: append([]float64(nil), times...),
		rates: append([]float64(nil), rates...),
	}, nil
}

// Segments returns the constant-rate spans of the schedule.
func (m *Model) Segments() []Segment {
	segs := make([]Segment, len(m.times))
	for i := range m.times {
		end := math.Inf(1)
		if i+1 < len(m.times) {
			end = m.times[i+1]
		}
		segs[i] = Segment{Start: m.times[i], End: end, Rate: m.rates[i]}
	}
	return segs
}

// CumulativePatients returns the expected number of patients enrolled by
// time t. The result is 0 for t at or before the first breakpoint and grows
// piecewise-linearly afterwards.
func (m *Model) CumulativePatients(t float64) float64 {
	total := 0.0
	for i := range m.times {
		start := m.times[i]
		if t <= start {
			break
		}
		end := t
		if i+1 < len(m.times) && m.times[i+1] < t {
			end = m.times[i+1]
		}
		total += m.rates[i] * (end - start)
	}
	return total
}

// TimeForPatients returns the time at which cumulative enrollment first
// reaches n. It fails with ErrUnreachable when the terminal rate is zero and
// n exceeds what the schedule can ever enroll.
func (m *Model) TimeForPatients(n float64) (float64, error) {
	if n <= 0 {
		return m.times[0], nil
	}
	total := 0.0
	for i := range m.times {
		start := m.times[i]
		if total >= n {
			return start, nil
		}
		if i == len(m.times)-1 {
			if m.rates[i] <= 0 {
				return 0, fmt.Errorf("%w: terminal rate is 0 after %g of %g patients",
					ErrUnreachable, total, n)
			}
			return start + (n-total)/m.rates[i], nil
		}
		segPatients := m.rates[i] * (m.times[i+1] - start)
		if total+segPatients >= n && m.rates[i] > 0 {
			return start + (n-total)/m.rates[i], nil
		}
		total += segPatients
	}
	return 0, ErrUnreachable
}
