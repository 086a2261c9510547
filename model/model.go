package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix,
// e.g. "out_3f0c…". The prefix makes ids self-describing in logs and webhooks.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// BoxesToDecimal lifts a box count into the decimal domain so it can be
// reported side by side with weights.
func BoxesToDecimal(boxes int64) decimal.Decimal {
	return decimal.NewFromInt(boxes)
}

// SumWeights adds up a list of weights.
func SumWeights(weights ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	return total
}

// Ratio returns numerator/denominator for reporting, or nil when the
// denominator is zero. The quotient is rounded to four decimal places with
// ties going away from zero (0.03125 becomes 0.0313), so a yield of 2/3 is
// reported as 0.6667. Weights themselves are never rounded.
func Ratio(numerator, denominator decimal.Decimal) *decimal.Decimal {
	if denominator.IsZero() {
		return nil
	}
	r := numerator.DivRound(denominator, 4)
	return &r
}
