package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDesign(_ *DesignRecord) error { return nil }
func (n *NoopRecorder) RecordRange(_ *RangeRecord) error   { return nil }
func (n *NoopRecorder) Close() error                       { return nil }
