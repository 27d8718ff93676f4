package recorder

import "QuoteHarvester/internal/model"

// Recorder persists session run history for later analysis.
type Recorder interface {
	RecordRun(report *model.RunReport) error
	Close() error
}
