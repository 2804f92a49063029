package report

import (
	"math"
	"strings"
	"testing"

	"TrialCompass/internal/model"
)

func TestFormatDesign(t *testing.T) {
	d := &model.TrialDesign{
		AccrualDuration:           15,
		TrialDuration:             38.5,
		NEvents:                   87.5,
		NPatients:                 150,
		H0ExpectedTrialDuration:   38.4,
		H1ExpectedTrialDuration:   33.2,
		H0ExpectedAccrualDuration: 15,
		H1ExpectedAccrualDuration: 14.8,
		H0ExpectedSampleSize:      150,
		H1ExpectedSampleSize:      141.2,
		Looks: []model.LookSummary{
			{Fraction: 0.5, CalendarTime: 21.3, Events: 43.75, UpperZ: 2.963, LowerZ: math.Inf(-1), H0StopProb: 0.0015, H1StopProb: 0.25},
			{Fraction: 1, CalendarTime: 38.5, Events: 87.5, UpperZ: 1.969, LowerZ: math.Inf(-1), H0StopProb: 0.9985, H1StopProb: 0.75},
		},
	}
	out := FormatDesign("phase3", d)
	for _, want := range []string{"phase3", "150", "87.5", "Analysis schedule", "+2.963", "Expected under H0 / H1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	// Infinite boundaries render as a dash, not as Inf.
	if strings.Contains(out, "Inf") {
		t.Errorf("report leaks Inf:\n%s", out)
	}
}

func TestFormatRange(t *testing.T) {
	out := FormatRange("phase3", 250, 300, 2)
	for _, want := range []string{"phase3", "250", "300", "2.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("range report missing %q:\n%s", want, out)
		}
	}
}
