package pricing

import "testing"

func TestForModelFamilyPriority(t *testing.T) {
	tests := []struct {
		model string
		want  Rates
	}{
		{"claude-opus-4-5-20260101", Rates{5, 25, 0.5, 6.25}},
		{"claude-opus-4-20250101", Rates{15, 75, 1.5, 18.75}},
		{"claude-3-5-sonnet-20241022", Rates{3, 15, 0.3, 3.75}},
		{"claude-haiku-4-5-20260101", Rates{1, 5, 0.1, 1.25}},
		{"claude-3-5-haiku-20241022", Rates{0.8, 4, 0.08, 1.0}},
		{"claude-3-haiku-20240307", Rates{0.25, 1.25, 0.03, 0.30}},
		{"some-unknown-model", Rates{3, 15, 0.3, 3.75}},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := ForModel(tt.model)
			if got != tt.want {
				t.Errorf("ForModel(%q) = %+v, want %+v", tt.model, got, tt.want)
			}
		})
	}
}

func TestCost(t *testing.T) {
	rates := Rates{Input: 3, Output: 15, CacheRead: 0.3, CacheCreate: 3.75}
	got := Cost(rates, 1_000_000, 1_000_000, 1_000_000, 1_000_000)
	want := 3.0 + 15.0 + 0.3 + 3.75
	if got != want {
		t.Errorf("Cost = %v, want %v", got, want)
	}
}
