package model

import "time"

// Classification labels the sign of the current deviation.
type Classification string

const (
	ClassHigher Classification = "higher"
	ClassLower  Classification = "lower"
)

// UsualClassification compares the current deviation to the historical median.
type UsualClassification string

const (
	UsualLarger  UsualClassification = "larger-than-usual"
	UsualSmaller UsualClassification = "smaller-than-usual"
)

// DeviationSample is one aligned row after the implied price is derived.
type DeviationSample struct {
	Time        time.Time
	Actual      float64
	Implied     float64
	PercentDiff float64
}

// DeviationSummary describes the distribution of percent deviations.
// When Defined is false no finite sample existed and the numeric fields are meaningless.
type DeviationSummary struct {
	Defined bool    `json:"defined"`
	Count   int     `json:"count"`
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	P5      float64 `json:"p5"`
	P25     float64 `json:"p25"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
	P90     float64 `json:"p90"`
}

// Pairs names the three series a report was computed from.
type Pairs struct {
	Actual string `json:"actual"`
	LegA   string `json:"leg_a"`
	LegB   string `json:"leg_b"`
}

// DeviationReport is the outcome of one evaluation.
type DeviationReport struct {
	CurrentPercentDiff  Price               `json:"current_percent_diff"`
	Classification      Classification      `json:"classification,omitempty"`
	UsualClassification UsualClassification `json:"usual_classification,omitempty"`
	ActualPrice         Price               `json:"actual_price"`
	ImpliedPrice        Price               `json:"implied_price"`
	LegAPrice           Price               `json:"leg_a_price"`
	LegBPrice           Price               `json:"leg_b_price"`
	Summary             DeviationSummary    `json:"summary"`
	StatisticsDefined   bool                `json:"statistics_defined"`
	Samples             int                 `json:"samples"`
	Pairs               Pairs               `json:"pairs"`
	WindowStart         time.Time           `json:"window_start,omitzero"`
	WindowEnd           time.Time           `json:"window_end,omitzero"`
}

// Result is what the pipeline hands to its caller. It is a failure value when
// Success is false; Report is nil in that case.
type Result struct {
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Report       *DeviationReport  `json:"report,omitempty"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// Failure builds a failed Result.
func Failure(msg string, sourceErrors map[string]string) Result {
	return Result{Success: false, Error: msg, SourceErrors: sourceErrors, GeneratedAt: time.Now().UTC()}
}
