package notifier

// Level is a presentation band derived from the index value
type Level int

const (
	LevelCalm Level = iota
	LevelCaution
	LevelAlert
)

// Tier thresholds
const (
	CautionThreshold = 20.0
	AlertThreshold   = 30.0
)

// Tier describes how a value is presented in the report
type Tier struct {
	Level   Level
	Name    string
	Color   string
	Summary string
}

var tiers = map[Level]Tier{
	LevelCalm:    {Level: LevelCalm, Name: "calm", Color: "#16a34a", Summary: "Volatility is low"},
	LevelCaution: {Level: LevelCaution, Name: "caution", Color: "#ca8a04", Summary: "Volatility is elevated"},
	LevelAlert:   {Level: LevelAlert, Name: "alert", Color: "#dc2626", Summary: "Volatility is high"},
}

// TierFor selects the tier for value:
// below 20 is calm, 20 up to 30 is caution, 30 and above is alert.
func TierFor(value float64) Tier {
	switch {
	case value < CautionThreshold:
		return tiers[LevelCalm]
	case value < AlertThreshold:
		return tiers[LevelCaution]
	default:
		return tiers[LevelAlert]
	}
}

func (l Level) String() string {
	return tiers[l].Name
}
