package solver

import (
	"fmt"
	"math"
)

// Numerical integration of the joint distribution of the sequential test
// statistic, after the recursive scheme of Jennison & Turnbull. The
// statistic is tracked in Brownian-motion scale S_k = Z_k*sqrt(t_k): its
// increments across looks are independent N(mu*dt, dt), so the sub-density
// of (S_k, trial still running at look k) propagates by convolution against
// a normal kernel, discretized on a composite Simpson grid.

const (
	// minSpend is the smallest per-look alpha increment worth a finite
	// boundary; below it the look cannot stop on that side.
	minSpend = 1e-12
	// gridSpread is how many conditional standard deviations of S_k the
	// integration grid spans around its mean.
	gridSpread = 8.0
	// boundary bisection runs to a fixed precision well inside any caller
	// tolerance.
	boundaryTol = 1e-10
)

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

type seqGrid struct {
	x []float64 // abscissae in S scale
	w []float64 // composite Simpson weights
	g []float64 // sub-density of (S_k, no stop before look k)
}

// simpsonWeights returns composite Simpson weights for m points (m odd)
// spaced h apart.
func simpsonWeights(m int, h float64) []float64 {
	w := make([]float64, m)
	for i := range w {
		switch {
		case i == 0 || i == m-1:
			w[i] = h / 3
		case i%2 == 1:
			w[i] = 4 * h / 3
		default:
			w[i] = 2 * h / 3
		}
	}
	return w
}

// walker advances the sub-density across looks for one drift value.
type walker struct {
	r       int     // grid resolution: 6r+1 points per look
	mu      float64 // drift of S per unit information fraction
	tPrev   float64
	started bool
	cur     seqGrid
}

// integrate evaluates sum w_i g_i f(x_i) over the current continuation
// region. Before the first look the state is a point mass at S=0.
func (wk *walker) integrate(f func(float64) float64) float64 {
	if !wk.started {
		return f(0)
	}
	total := 0.0
	for i := range wk.cur.x {
		total += wk.cur.w[i] * wk.cur.g[i] * f(wk.cur.x[i])
	}
	return total
}

// upperCrossProb is the probability of first crossing above upperZ at the
// look with information fraction t.
func (wk *walker) upperCrossProb(t, upperZ float64) float64 {
	dt := t - wk.tPrev
	sd := math.Sqrt(dt)
	shift := wk.mu * dt
	bS := upperZ * math.Sqrt(t)
	return wk.integrate(func(x float64) float64 {
		return stdNormal.Survival((bS - x - shift) / sd)
	})
}

// lowerCrossProb is the probability of first crossing below lowerZ at the
// look with information fraction t.
func (wk *walker) lowerCrossProb(t, lowerZ float64) float64 {
	dt := t - wk.tPrev
	sd := math.Sqrt(dt)
	shift := wk.mu * dt
	bS := lowerZ * math.Sqrt(t)
	return wk.integrate(func(x float64) float64 {
		return stdNormal.CDF((bS - x - shift) / sd)
	})
}

// advance folds the normal increment kernel into the sub-density and
// truncates it to the continuation region (lowerZ, upperZ) of this look.
func (wk *walker) advance(t, upperZ, lowerZ float64) {
	dt := t - wk.tPrev
	sd := math.Sqrt(dt)
	shift := wk.mu * dt

	lo := wk.mu*t - gridSpread*math.Sqrt(t)
	hi := wk.mu*t + gridSpread*math.Sqrt(t)
	if bS := lowerZ * math.Sqrt(t); bS > lo {
		lo = bS
	}
	if bS := upperZ * math.Sqrt(t); bS < hi {
		hi = bS
	}

	prev := wk.cur
	prevStarted := wk.started
	wk.started = true
	wk.tPrev = t

	if hi <= lo {
		// Continuation region is empty: everything stops at this look.
		wk.cur = seqGrid{}
		return
	}

	m := 6*wk.r + 1
	h := (hi - lo) / float64(m-1)
	next := seqGrid{
		x: make([]float64, m),
		w: simpsonWeights(m, h),
		g: make([]float64, m),
	}
	for j := 0; j < m; j++ {
		s := lo + float64(j)*h
		next.x[j] = s
		if !prevStarted {
			next.g[j] = normPDF((s-shift)/sd) / sd
			continue
		}
		sum := 0.0
		for i := range prev.x {
			sum += prev.w[i] * prev.g[i] * normPDF((s-prev.x[i]-shift)/sd)
		}
		next.g[j] = sum / sd
	}
	wk.cur = next
}

// solveBoundaries derives the per-look z boundaries that spend exactly the
// given alpha increments under the null. A nil lowerInc means no lower
// boundary. Boundaries with a negligible increment are +/-Inf (no stop on
// that side at that look).
func solveBoundaries(looks []float64, upperInc, lowerInc []float64, r int) (upperZ, lowerZ []float64, err error) {
	wk := &walker{r: r}
	upperZ = make([]float64, len(looks))
	lowerZ = make([]float64, len(looks))
	for k, t := range looks {
		uz := math.Inf(1)
		if upperInc[k] > minSpend {
			uz, err = bisect(func(z float64) float64 {
				return upperInc[k] - wk.upperCrossProb(t, z)
			}, -stdNormalRange, stdNormalRange, boundaryTol, 200)
			if err != nil {
				return nil, nil, fmt.Errorf("upper boundary at look %d: %w", k+1, err)
			}
		}
		lz := math.Inf(-1)
		if lowerInc != nil && lowerInc[k] > minSpend {
			lz, err = bisect(func(z float64) float64 {
				return wk.lowerCrossProb(t, z) - lowerInc[k]
			}, -stdNormalRange, stdNormalRange, boundaryTol, 200)
			if err != nil {
				return nil, nil, fmt.Errorf("lower boundary at look %d: %w", k+1, err)
			}
		}
		if lz >= uz {
			return nil, nil, fmt.Errorf("%w: boundaries cross at look %d (lower %.3f >= upper %.3f)",
				ErrInvalidParameter, k+1, lz, uz)
		}
		upperZ[k] = uz
		lowerZ[k] = lz
		wk.advance(t, uz, lz)
	}
	return upperZ, lowerZ, nil
}

// stdNormalRange brackets every boundary of practical interest in z scale.
const stdNormalRange = 12.0

// crossingProbs evaluates the per-look first-crossing probabilities for
// fixed boundaries under the given drift.
func crossingProbs(looks []float64, upperZ, lowerZ []float64, mu float64, r int) (pUp, pLow []float64) {
	wk := &walker{r: r, mu: mu}
	pUp = make([]float64, len(looks))
	pLow = make([]float64, len(looks))
	for k, t := range looks {
		if !math.IsInf(upperZ[k], 1) {
			pUp[k] = wk.upperCrossProb(t, upperZ[k])
		}
		if !math.IsInf(lowerZ[k], -1) {
			pLow[k] = wk.lowerCrossProb(t, lowerZ[k])
		}
		wk.advance(t, upperZ[k], lowerZ[k])
	}
	return pUp, pLow
}

// bisect finds a root of f on [lo, hi], assuming f changes sign across the
// bracket, stopping once the bracket is narrower than tol.
func bisect(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	flo := f(lo)
	for i := 0; i < maxIter; i++ {
		if hi-lo <= tol {
			return 0.5 * (lo + hi), nil
		}
		mid := 0.5 * (lo + hi)
		if fmid := f(mid); (flo <= 0) == (fmid <= 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	return 0, fmt.Errorf("%w: bracket still %g wide after %d iterations", ErrNonConvergence, hi-lo, maxIter)
}
