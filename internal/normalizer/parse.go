package normalizer

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SpreadSentinel/internal/model"
)

// parsePrice reads a JSON number or numeric string. Anything else is missing.
func parsePrice(raw json.RawMessage) model.Price {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return model.Missing()
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return model.Missing()
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return model.Missing()
		}
		return model.Some(d.InexactFloat64())
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.Missing()
	}
	return model.Some(f)
}

// parseUnix reads epoch seconds from a JSON number or numeric string.
func parseUnix(raw json.RawMessage) (time.Time, bool) {
	p := parsePrice(raw)
	if !p.Valid || p.Value < 0 || p.Value > float64(math.MaxInt64/int64(time.Second)) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(p.Value)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true
}
