package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"TrialCompass/internal/model"
)

// FormatDesign renders a solved design as a plain-text report.
func FormatDesign(scenario string, d *model.TrialDesign) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Trial design: %s | %s\n\n", scenario, time.Now().Format("2006-01-02")))

	b.WriteString(fmt.Sprintf("Patients:         %d\n", d.NPatients))
	b.WriteString(fmt.Sprintf("Required events:  %.1f\n", d.NEvents))
	b.WriteString(fmt.Sprintf("Accrual duration: %.2f\n", d.AccrualDuration))
	b.WriteString(fmt.Sprintf("Trial duration:   %.2f\n\n", d.TrialDuration))

	if len(d.Looks) > 1 {
		b.WriteString("Analysis schedule:\n")
		b.WriteString("  look  frac   time    events  upper     lower     P(stop|H0)  P(stop|H1)\n")
		for i, lk := range d.Looks {
			b.WriteString(fmt.Sprintf("  %4d  %.2f  %6.2f  %6.1f  %-8s  %-8s  %10.4f  %10.4f\n",
				i+1, lk.Fraction, lk.CalendarTime, lk.Events,
				formatBoundary(lk.UpperZ), formatBoundary(lk.LowerZ),
				lk.H0StopProb, lk.H1StopProb))
		}
		b.WriteString("\n")
	}

	b.WriteString("Expected under H0 / H1:\n")
	b.WriteString(fmt.Sprintf("  accrual duration: %.2f / %.2f\n",
		d.H0ExpectedAccrualDuration, d.H1ExpectedAccrualDuration))
	b.WriteString(fmt.Sprintf("  trial duration:   %.2f / %.2f\n",
		d.H0ExpectedTrialDuration, d.H1ExpectedTrialDuration))
	b.WriteString(fmt.Sprintf("  sample size:      %.1f / %.1f\n",
		d.H0ExpectedSampleSize, d.H1ExpectedSampleSize))

	return b.String()
}

// FormatRange renders a sample-size range search result.
func FormatRange(scenario string, nLow, nHigh int, minPercChange float64) string {
	return fmt.Sprintf("Sample-size range: %s | %s\n\nPlausible sample sizes: %d to %d\n(duration gains below %.2f%% per step beyond this range)\n",
		scenario, time.Now().Format("2006-01-02"), nLow, nHigh, minPercChange)
}

func formatBoundary(z float64) string {
	if math.IsInf(z, 1) {
		return "-"
	}
	if math.IsInf(z, -1) {
		return "-"
	}
	return fmt.Sprintf("%+.3f", z)
}
