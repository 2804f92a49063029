package recorder

import "TrialCompass/internal/model"

// DesignRecord holds one solved design for history.
type DesignRecord struct {
	Scenario string
	Design   *model.TrialDesign
}

// RangeRecord holds one sample-size range search result.
type RangeRecord struct {
	Scenario      string
	NLow          int
	NHigh         int
	Delta         float64
	MinPercChange float64
}

// Recorder persists computed designs for later comparison across planning
// iterations.
type Recorder interface {
	RecordDesign(rec *DesignRecord) error
	RecordRange(rec *RangeRecord) error
	Close() error
}
