// Package pricing holds the per-model token pricing table used to
// compute a session's cost when the agent's own `result` record omits
// one.
package pricing

import "strings"

// Rates are USD per million tokens.
type Rates struct {
	Input        float64
	Output       float64
	CacheRead    float64
	CacheCreate  float64
}

// family is one entry in the enumeration below. Families are checked in
// order, most-specific first, so "opus-4.5" matches before the bare
// "opus" fallback would. A naive longest-substring scan is ambiguous
// when a model id could plausibly contain two family names.
type family struct {
	name   string
	needle string
	rates  Rates
}

var families = []family{
	{"opus-4.5", "opus-4-5", Rates{5, 25, 0.5, 6.25}},
	{"opus-4.6", "opus-4-6", Rates{5, 25, 0.5, 6.25}},
	{"opus-4.1", "opus-4-1", Rates{15, 75, 1.5, 18.75}},
	{"opus-4", "opus-4", Rates{15, 75, 1.5, 18.75}},
	{"opus-3", "opus-3", Rates{15, 75, 1.5, 18.75}},
	{"opus", "opus", Rates{15, 75, 1.5, 18.75}},
	{"haiku-4.5", "haiku-4-5", Rates{1, 5, 0.1, 1.25}},
	{"haiku-3.5", "3-5-haiku", Rates{0.8, 4, 0.08, 1.0}},
	{"haiku-3", "haiku-3", Rates{0.25, 1.25, 0.03, 0.30}},
	{"haiku", "haiku", Rates{0.25, 1.25, 0.03, 0.30}},
	{"sonnet", "sonnet", Rates{3, 15, 0.3, 3.75}},
}

// defaultRates is applied when no family name is recognized, matching
// the source's documented default of the Sonnet tier.
var defaultRates = Rates{3, 15, 0.3, 3.75}

// ForModel resolves the pricing table entry for a model id using an
// explicit, priority-ordered family enumeration rather than a generic
// longest-substring scan (see the source's Open Question about
// substring ambiguity — e.g. a hypothetical id containing both "opus"
// and "haiku").
func ForModel(modelID string) Rates {
	lower := strings.ToLower(modelID)
	for _, f := range families {
		if strings.Contains(lower, f.needle) {
			return f.rates
		}
	}
	return defaultRates
}

// Cost computes total USD cost for the given token counts under rates.
func Cost(rates Rates, inputTokens, outputTokens, cacheReadTokens, cacheCreateTokens int) float64 {
	const perMillion = 1_000_000.0
	return float64(inputTokens)*rates.Input/perMillion +
		float64(outputTokens)*rates.Output/perMillion +
		float64(cacheReadTokens)*rates.CacheRead/perMillion +
		float64(cacheCreateTokens)*rates.CacheCreate/perMillion
}
