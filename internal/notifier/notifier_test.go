package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SpreadSentinel/internal/model"
)

func sampleReport() model.Result {
	return model.Result{
		Success:     true,
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Report: &model.DeviationReport{
			CurrentPercentDiff:  model.Some(2.5),
			Classification:      model.ClassHigher,
			UsualClassification: model.UsualLarger,
			ActualPrice:         model.Some(312345.678),
			ImpliedPrice:        model.Some(304727.49),
			LegAPrice:           model.Some(64500),
			LegBPrice:           model.Some(4.72446),
			StatisticsDefined:   true,
			Summary: model.DeviationSummary{
				Defined: true, Count: 3, Current: 2.5, Min: 1, Max: 2.5,
				P5: 1.05, P25: 1.25, Median: 1.5, P75: 2, P90: 2.3,
			},
			Pairs: model.Pairs{Actual: "BTC/MYR", LegA: "BTC/USD", LegB: "USD/MYR"},
		},
	}
}

func TestFormatReport(t *testing.T) {
	msg := FormatReport(sampleReport())
	for _, want := range []string{
		"<b>higher</b> than implied",
		"2.50% is larger than usual 1.50%",
		"BTC/MYR (actual): 312,345.68",
		"USD/MYR: 4.7245",
		"Median: +1.50%",
		"90th pct: +2.30%",
		"Samples: 3",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatReportLowerSmaller(t *testing.T) {
	res := sampleReport()
	res.Report.Classification = model.ClassLower
	res.Report.UsualClassification = model.UsualSmaller
	line := StatusLine(res.Report)
	if !strings.Contains(line, "<b>lower</b>") || !strings.Contains(line, "smaller than usual") {
		t.Errorf("unexpected status line: %s", line)
	}
}

func TestFormatReportUndefinedStatistics(t *testing.T) {
	res := sampleReport()
	res.Report.StatisticsDefined = false
	res.Report.Summary = model.DeviationSummary{}
	res.Report.ImpliedPrice = model.Missing()
	msg := FormatReport(res)
	if !strings.Contains(msg, "no comparable history") {
		t.Errorf("expected undefined statistics notice:\n%s", msg)
	}
	if !strings.Contains(msg, "(implied): n/a") {
		t.Errorf("expected missing implied price rendered as n/a:\n%s", msg)
	}
	if strings.Contains(msg, "Median") {
		t.Errorf("undefined statistics should not print a median:\n%s", msg)
	}
}

func TestFormatFailure(t *testing.T) {
	res := model.Failure("malformed payload from BTC/USD", map[string]string{
		"USD/MYR": "timeout",
		"BTC/USD": "missing <chart>",
	})
	msg := FormatReport(res)
	if !strings.Contains(msg, "run failed") {
		t.Errorf("expected failure header:\n%s", msg)
	}
	if !strings.Contains(msg, "missing &lt;chart&gt;") {
		t.Errorf("source error should be escaped:\n%s", msg)
	}
	if strings.Index(msg, "BTC/USD:") > strings.Index(msg, "USD/MYR:") {
		t.Errorf("source errors should be sorted:\n%s", msg)
	}
}

func TestSendPostsMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendWithRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	n.Backoff = time.Millisecond

	if err := n.SendWithRetry(context.Background(), "hi", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	atomic.StoreInt32(&calls, -100)
	if err := n.SendWithRetry(context.Background(), "hi", 1); err == nil {
		t.Error("expected error after exhausting retries")
	}
}

func TestPollDispatchesCommands(t *testing.T) {
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /report "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/last"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	var seen []string
	next, err := n.poll(context.Background(), n.Client, 0, func(cmd string) string {
		seen = append(seen, cmd)
		if cmd == "/report" {
			return "ok"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if next != 10 {
		t.Errorf("next offset = %d, want 10", next)
	}
	if len(seen) != 2 || seen[0] != "/report" || seen[1] != "/last" {
		t.Errorf("commands = %v", seen)
	}
	if len(replies) != 1 || replies[0] != "ok" {
		t.Errorf("replies = %v", replies)
	}
}
