package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"SpreadSentinel/internal/model"
)

const base = int64(1700000040) // minute aligned

func candles(closes map[int64]string) []byte {
	var recs []string
	for ts, c := range closes {
		recs = append(recs, fmt.Sprintf(`{"timestamp":%d,"open":%q,"high":%q,"low":%q,"close":%q}`, ts, c, c, c, c))
	}
	return []byte(`{"candles":[` + strings.Join(recs, ",") + `]}`)
}

func chart(ts []int64, closes []string) []byte {
	t := make([]string, len(ts))
	for i, v := range ts {
		t[i] = fmt.Sprint(v)
	}
	return []byte(fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		strings.Join(t, ","), strings.Join(closes, ",")))
}

func inputs(actual, legA, legB []byte) Inputs {
	return Inputs{
		Actual: model.RawObservation{Source: "luno", Pair: "BTC/MYR", Shape: model.ShapeCandle, Body: actual},
		LegA:   model.RawObservation{Source: "yahoo", Pair: "BTC/USD", Shape: model.ShapeChart, Body: legA},
		LegB:   model.RawObservation{Source: "yahoo", Pair: "USD/MYR", Shape: model.ShapeChart, Body: legB},
	}
}

func TestAnalyze_EqualImpliedIsLower(t *testing.T) {
	t1 := base + 60
	res := Analyze(inputs(
		candles(map[int64]string{base: "100", t1: "102"}),
		chart([]int64{base, t1}, []string{"2", "2"}),
		chart([]int64{base, t1}, []string{"50", "51"}),
	))
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	rep := res.Report
	if rep.Samples != 2 || rep.Summary.Median != 0 {
		t.Errorf("expected 2 samples with median 0, got %d / %v", rep.Samples, rep.Summary.Median)
	}
	if rep.Classification != model.ClassLower {
		t.Errorf("expected lower, got %q", rep.Classification)
	}
	if v, _ := rep.ImpliedPrice.Get(); v != 102 {
		t.Errorf("expected implied 102, got %v", v)
	}
}

func TestAnalyze_PremiumIsHigher(t *testing.T) {
	res := Analyze(inputs(
		candles(map[int64]string{base: "110"}),
		chart([]int64{base}, []string{"2"}),
		chart([]int64{base}, []string{"50"}),
	))
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if cur, _ := res.Report.CurrentPercentDiff.Get(); math.Abs(cur-10) > 1e-9 || res.Report.Classification != model.ClassHigher {
		t.Errorf("expected +10%% higher, got %v %q", cur, res.Report.Classification)
	}
}

func TestAnalyze_DisjointSeriesUndefined(t *testing.T) {
	res := Analyze(inputs(
		candles(map[int64]string{base: "100"}),
		chart([]int64{base + 600}, []string{"2"}),
		chart([]int64{base + 1200}, []string{"50"}),
	))
	if !res.Success {
		t.Fatalf("empty alignment is a valid state, got error %q", res.Error)
	}
	if res.Report.StatisticsDefined || res.Report.Summary.Defined {
		t.Error("expected undefined statistics flag")
	}
	if res.Report.CurrentPercentDiff.Valid {
		t.Error("current deviation must be absent, not zero")
	}
	// Latest quotes are still reported per leg.
	if v, ok := res.Report.ImpliedPrice.Get(); !ok || v != 100 {
		t.Errorf("expected latest implied 100, got %v (valid=%v)", v, ok)
	}
}

func TestAnalyze_MalformedExchangePayloadNamesSource(t *testing.T) {
	res := Analyze(inputs(
		[]byte(`{"error":"ErrTooManyRequests"}`),
		chart([]int64{base}, []string{"2"}),
		chart([]int64{base}, []string{"50"}),
	))
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "BTC/MYR") {
		t.Errorf("error should name the offending source, got %q", res.Error)
	}
	if len(res.SourceErrors) != 1 || res.SourceErrors["BTC/MYR"] == "" {
		t.Errorf("expected only BTC/MYR to fail, got %v", res.SourceErrors)
	}
	if res.Report != nil {
		t.Error("failed result must not carry a report")
	}
}

func TestAnalyze_AllMalformedSourcesReported(t *testing.T) {
	res := Analyze(inputs([]byte(`{}`), []byte(`{}`), []byte(`not json`)))
	if res.Success || len(res.SourceErrors) != 3 {
		t.Fatalf("expected three source errors, got %v", res.SourceErrors)
	}
}

func TestAnalyze_EmptySourceIsNotFailure(t *testing.T) {
	res := Analyze(inputs(
		[]byte(`{"candles":[]}`),
		chart([]int64{base}, []string{"2"}),
		chart([]int64{base}, []string{"50"}),
	))
	if !res.Success {
		t.Fatalf("empty source should be a valid empty state, got %q", res.Error)
	}
	if res.Report.ActualPrice.Valid || res.Report.StatisticsDefined {
		t.Errorf("expected no actual price and undefined stats, got %+v", res.Report)
	}
}

func TestAnalyze_InterpolatedGapsAlign(t *testing.T) {
	// Exchange misses minute 1, BTC/USD misses minute 2 and quotes null at minute 4.
	res := Analyze(inputs(
		candles(map[int64]string{base: "100", base + 120: "104", base + 180: "106"}),
		chart([]int64{base, base + 60, base + 180, base + 240}, []string{"1", "1", "1", "null"}),
		chart([]int64{base, base + 60, base + 120, base + 180}, []string{"100", "101", "102", "103"}),
	))
	if !res.Success {
		t.Fatalf("unexpected failure %q", res.Error)
	}
	// Minutes 0..3 are populated everywhere after interpolation; minute 4 is not.
	if res.Report.Samples != 4 {
		t.Errorf("expected 4 aligned samples, got %d", res.Report.Samples)
	}
	if v, ok := res.Report.LegAPrice.Get(); !ok || v != 1 {
		t.Errorf("expected latest populated BTC/USD 1, got %v", v)
	}
}

func TestAnalyze_StrayTimestampRejected(t *testing.T) {
	in := inputs(
		candles(map[int64]string{0: "1", base: "100"}),
		chart([]int64{base}, []string{"2"}),
		chart([]int64{base}, []string{"50"}),
	)
	in.Lookback = time.Hour
	res := Analyze(in)
	if res.Success {
		t.Fatal("expected failure for a series spanning decades")
	}
	msg := res.SourceErrors["BTC/MYR"]
	if len(res.SourceErrors) != 1 || !strings.Contains(msg, "too wide") {
		t.Errorf("expected BTC/MYR span error, got %v", res.SourceErrors)
	}
}

func TestAnalyze_SpanWithinLookback(t *testing.T) {
	in := inputs(
		candles(map[int64]string{base: "100", base + 7200: "100"}),
		chart([]int64{base, base + 7200}, []string{"2", "2"}),
		chart([]int64{base, base + 7200}, []string{"50", "50"}),
	)
	in.Lookback = time.Hour
	if res := Analyze(in); !res.Success {
		t.Fatalf("two hours of data should fit a one hour lookback with slack, got %q", res.Error)
	}
	in.Lookback = 30 * time.Minute
	if res := Analyze(in); res.Success {
		t.Error("two hours of data should exceed a thirty minute lookback")
	}
}

func TestAnalyze_MissingPairName(t *testing.T) {
	in := inputs(candles(map[int64]string{base: "1"}), chart(nil, nil), chart(nil, nil))
	in.LegB.Pair = ""
	if res := Analyze(in); res.Success {
		t.Error("expected failure when a pair is unnamed")
	}
}

func TestResult_FailureJSON(t *testing.T) {
	res := Analyze(inputs([]byte(`{}`), chart(nil, nil), chart(nil, nil)))
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["success"] != false || decoded["error"] == "" {
		t.Errorf("expected {success:false, error:...}, got %s", data)
	}
}
