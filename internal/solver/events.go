package solver

import (
	"fmt"
	"math"
)

// eventIntegral integrates the probability of an observed event by calendar
// time d over enrollment times s in [a, b], for one arm with event hazard
// lambda and dropout hazard eta. With constant competing hazards a patient
// enrolled at s has event probability lambda/(lambda+eta) *
// (1 - exp(-(lambda+eta)(d-s))), which integrates in closed form.
func eventIntegral(lambda, eta, d, a, b float64) float64 {
	h := lambda + eta
	return lambda / h * ((b - a) - (math.Exp(-h*(d-b))-math.Exp(-h*(d-a)))/h)
}

// expectedEvents is the expected number of observed events by calendar time
// d, with enrollment cut off at accrualEnd (the time the target patient
// count is reached).
func expectedEvents(p *Params, accrualEnd, d float64) float64 {
	if d <= 0 {
		return 0
	}
	horizon := math.Min(d, accrualEnd)
	propCtrl := 1 - p.PropTreated
	total := 0.0
	for _, seg := range p.Enrollment.Segments() {
		a := seg.Start
		b := math.Min(seg.End, horizon)
		if b <= a || seg.Rate == 0 {
			continue
		}
		total += seg.Rate * (p.PropTreated*eventIntegral(p.HazardEventTrt, p.HazardDropout, d, a, b) +
			propCtrl*eventIntegral(p.HazardEventCtrl, p.HazardDropout, d, a, b))
	}
	return total
}

// EventProbabilityLimit is the probability that a patient eventually has an
// observed event rather than dropping out, mixed over the two arms. It
// bounds the events any patient count can ever supply.
func EventProbabilityLimit(p *Params) float64 {
	trt := p.HazardEventTrt / (p.HazardEventTrt + p.HazardDropout)
	ctrl := p.HazardEventCtrl / (p.HazardEventCtrl + p.HazardDropout)
	return p.PropTreated*trt + (1-p.PropTreated)*ctrl
}

// solveEventTime finds the calendar time at which the expected event count
// reaches target.
func solveEventTime(p *Params, accrualEnd, target float64) (float64, error) {
	if target <= 0 {
		return 0, nil
	}
	hi := math.Max(accrualEnd, 1)
	expansions := 0
	for expectedEvents(p, accrualEnd, hi) < target {
		hi *= 2
		expansions++
		if expansions > 200 {
			return 0, fmt.Errorf("%w: expected events never reach %.2f", ErrNonConvergence, target)
		}
	}
	return bisect(func(d float64) float64 {
		return expectedEvents(p, accrualEnd, d) - target
	}, 0, hi, p.Tol, 500)
}
