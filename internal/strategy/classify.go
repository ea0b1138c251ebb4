package strategy

import (
	"math"

	"SpreadSentinel/internal/model"
)

// classifySign labels the current deviation. Zero counts as lower.
func classifySign(current float64) model.Classification {
	if current > 0 {
		return model.ClassHigher
	}
	return model.ClassLower
}

// classifyUsual compares the magnitude of the current deviation with the
// magnitude of the historical median. A tie is not larger.
func classifyUsual(current, median float64) model.UsualClassification {
	if math.Abs(current) > math.Abs(median) {
		return model.UsualLarger
	}
	return model.UsualSmaller
}
