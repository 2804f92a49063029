package enrollment

import (
	"errors"
	"math"
	"testing"
)

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		rates []float64
	}{
		{"empty", nil, nil},
		{"length mismatch", []float64{0, 5}, []float64{10}},
		{"non-monotonic times", []float64{0, 5, 3}, []float64{10, 10, 10}},
		{"duplicate times", []float64{0, 5, 5}, []float64{10, 10, 10}},
		{"negative first time", []float64{-1, 5}, []float64{10, 10}},
		{"negative rate", []float64{0, 5}, []float64{10, -2}},
	}
	for _, tt := range tests {
		_, err := New(tt.times, tt.rates)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
			continue
		}
		if !errors.Is(err, ErrInvalidModel) {
			t.Errorf("%s: expected ErrInvalidModel, got %v", tt.name, err)
		}
	}
}

func TestCumulativePatients(t *testing.T) {
	m, err := New([]float64{0, 10, 20}, []float64{5, 10, 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := m.CumulativePatients(0); got != 0 {
		t.Errorf("at t=0: expected 0, got %g", got)
	}
	if got := m.CumulativePatients(-3); got != 0 {
		t.Errorf("at t=-3: expected 0, got %g", got)
	}
	if got := m.CumulativePatients(10); got != 50 {
		t.Errorf("at t=10: expected 50, got %g", got)
	}
	if got := m.CumulativePatients(15); got != 100 {
		t.Errorf("at t=15: expected 100, got %g", got)
	}
	// Terminal rate 0: flat after t=20.
	if got := m.CumulativePatients(100); got != 150 {
		t.Errorf("at t=100: expected 150, got %g", got)
	}

	// Non-decreasing on a sweep.
	prev := 0.0
	for x := 0.0; x <= 40; x += 0.25 {
		cur := m.CumulativePatients(x)
		if cur < prev {
			t.Fatalf("cumulative enrollment decreased at t=%g: %g < %g", x, cur, prev)
		}
		prev = cur
	}
}

func TestTimeForPatients_RoundTrip(t *testing.T) {
	m, err := New([]float64{0, 4, 12}, []float64{2, 8, 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, x := range []float64{0.5, 2, 4, 7.3, 12, 19, 30} {
		n := m.CumulativePatients(x)
		back, err := m.TimeForPatients(n)
		if err != nil {
			t.Fatalf("TimeForPatients(%g): %v", n, err)
		}
		if math.Abs(back-x) > 1e-9 {
			t.Errorf("round trip at t=%g: got %g", x, back)
		}
	}
}

func TestTimeForPatients_Unreachable(t *testing.T) {
	m, err := New([]float64{0, 10}, []float64{5, 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.TimeForPatients(50); err != nil {
		t.Errorf("50 patients should be reachable: %v", err)
	}
	_, err = m.TimeForPatients(51)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestTimeForPatients_DelayedStart(t *testing.T) {
	m, err := New([]float64{3}, []float64{4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := m.TimeForPatients(8)
	if err != nil {
		t.Fatalf("TimeForPatients: %v", err)
	}
	if math.Abs(got-5) > 1e-12 {
		t.Errorf("expected t=5, got %g", got)
	}
	if n := m.CumulativePatients(3); n != 0 {
		t.Errorf("no enrollment before start: got %g", n)
	}
}
