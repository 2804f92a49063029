package spending

import (
	"errors"
	"math"
	"testing"
)

func TestNew_UnknownSelector(t *testing.T) {
	_, err := New("pocock", 0.025, []float64{1}, nil)
	if !errors.Is(err, ErrInvalidFunction) {
		t.Errorf("expected ErrInvalidFunction, got %v", err)
	}
}

func TestNew_CustomWithoutSpend(t *testing.T) {
	_, err := New(SelectorCustom, 0.025, []float64{0.5, 1}, nil)
	if !errors.Is(err, ErrMissingCustomSpend) {
		t.Errorf("expected ErrMissingCustomSpend, got %v", err)
	}
}

func TestNew_CustomMismatchedLength(t *testing.T) {
	_, err := New(SelectorCustom, 0.025, []float64{0.5, 0.75, 1}, []float64{0.01, 0.025})
	if !errors.Is(err, ErrMissingCustomSpend) {
		t.Errorf("expected ErrMissingCustomSpend, got %v", err)
	}
}

func TestNew_CustomBadSchedule(t *testing.T) {
	// Decreasing cumulative spend.
	_, err := New(SelectorCustom, 0.025, []float64{0.5, 1}, []float64{0.02, 0.01})
	if !errors.Is(err, ErrMissingCustomSpend) {
		t.Errorf("decreasing: expected ErrMissingCustomSpend, got %v", err)
	}
	// Final value not equal to alpha.
	_, err = New(SelectorCustom, 0.025, []float64{0.5, 1}, []float64{0.01, 0.02})
	if !errors.Is(err, ErrMissingCustomSpend) {
		t.Errorf("final != alpha: expected ErrMissingCustomSpend, got %v", err)
	}
}

func TestLDOF_Properties(t *testing.T) {
	alpha := 0.025
	f, err := New(SelectorLDOF, alpha, []float64{1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := f.CumulativeSpend(1); math.Abs(got-alpha) > 1e-12 {
		t.Errorf("spend at t=1: expected %g, got %g", alpha, got)
	}
	prev := 0.0
	for x := 0.05; x <= 1.0; x += 0.05 {
		cur := f.CumulativeSpend(x)
		if cur < prev {
			t.Fatalf("spend decreased at t=%g: %g < %g", x, cur, prev)
		}
		prev = cur
	}
	// Conservative early: far below linear spending at low information.
	if got := f.CumulativeSpend(0.25); got > alpha*0.25/4 {
		t.Errorf("LDOF should be conservative early: spend(0.25)=%g", got)
	}
	// Published value: for one-sided alpha 0.025, a(0.5) ~= 0.001525.
	if got := f.CumulativeSpend(0.5); math.Abs(got-0.001525) > 5e-5 {
		t.Errorf("spend at t=0.5: expected ~0.001525, got %g", got)
	}
}

func TestCustom_ExactValuesAtLooks(t *testing.T) {
	looks := []float64{0.3, 0.7, 1}
	spend := []float64{0.002, 0.011, 0.025}
	f, err := New(SelectorCustom, 0.025, looks, spend)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, lf := range looks {
		if got := f.CumulativeSpend(lf); got != spend[i] {
			t.Errorf("look %d: expected exactly %g, got %g", i+1, spend[i], got)
		}
	}
	// Between looks: last completed look's value, no interpolation.
	if got := f.CumulativeSpend(0.5); got != 0.002 {
		t.Errorf("between looks: expected 0.002, got %g", got)
	}
}

func TestIncrements(t *testing.T) {
	looks := []float64{0.5, 1}
	f, err := New(SelectorCustom, 0.025, looks, []float64{0.005, 0.025})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	incs := f.Increments(looks)
	if len(incs) != 2 {
		t.Fatalf("expected 2 increments, got %d", len(incs))
	}
	if math.Abs(incs[0]-0.005) > 1e-12 || math.Abs(incs[1]-0.02) > 1e-12 {
		t.Errorf("unexpected increments: %v", incs)
	}
	sum := incs[0] + incs[1]
	if math.Abs(sum-0.025) > 1e-12 {
		t.Errorf("increments should sum to alpha: %g", sum)
	}
}
