package notifier

import "testing"

func TestTierFor_Boundaries(t *testing.T) {
	tests := []struct {
		value    float64
		expected Level
	}{
		{0, LevelCalm},
		{12.5, LevelCalm},
		{19.99, LevelCalm},
		{20.00, LevelCaution},
		{25, LevelCaution},
		{29.99, LevelCaution},
		{30.00, LevelAlert},
		{82.69, LevelAlert},
	}

	for _, tt := range tests {
		tier := TierFor(tt.value)
		if tier.Level != tt.expected {
			t.Errorf("TierFor(%v): expected %s, got %s", tt.value, tt.expected, tier.Level)
		}
	}
}

func TestTierFor_Presentation(t *testing.T) {
	colors := map[Level]string{
		LevelCalm:    "#16a34a",
		LevelCaution: "#ca8a04",
		LevelAlert:   "#dc2626",
	}

	for value, level := range map[float64]Level{10: LevelCalm, 22: LevelCaution, 40: LevelAlert} {
		tier := TierFor(value)
		if tier.Color != colors[level] {
			t.Errorf("Expected color %s for %s, got %s", colors[level], level, tier.Color)
		}
		if tier.Name != level.String() || tier.Summary == "" {
			t.Errorf("Unexpected tier presentation: %+v", tier)
		}
	}
}
