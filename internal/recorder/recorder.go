package recorder

import (
	"time"

	"SpreadSentinel/internal/model"
)

// ReportEvent is one evaluation cycle as emitted to the user. It is an audit
// trail only; nothing reads it back into the pipeline.
type ReportEvent struct {
	RunID    string
	Trigger  string // "CRON", "COMMAND", "STARTUP", "ONCE"
	Result   model.Result
	Notified bool
	At       time.Time
}

// Recorder persists emitted reports.
type Recorder interface {
	RecordReport(evt *ReportEvent) error
	Close() error
}
