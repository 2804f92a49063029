package model

// LookSummary describes one planned analysis of a solved design.
type LookSummary struct {
	Fraction     float64 // information fraction in (0,1]
	CalendarTime float64 // time from first enrollment to this look
	Events       float64 // expected events at this look
	UpperZ       float64 // efficacy boundary, +Inf when no stop on this side
	LowerZ       float64 // lower boundary, -Inf when no stop on this side
	H0StopProb   float64
	H1StopProb   float64
}

// TrialDesign is the solved design for a fixed patient count.
type TrialDesign struct {
	AccrualDuration float64
	TrialDuration   float64
	NEvents         float64
	NPatients       int

	H0ExpectedAccrualDuration float64
	H1ExpectedAccrualDuration float64
	H0ExpectedTrialDuration   float64
	H1ExpectedTrialDuration   float64
	H0ExpectedSampleSize      float64
	H1ExpectedSampleSize      float64

	Looks []LookSummary
}
