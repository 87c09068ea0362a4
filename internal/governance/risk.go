package governance

import "strings"

// Tool risk levels, in ascending rank. Anything unrecognized ranks
// above CRITICAL: an unknown risk level is maximally risky, never a
// free pass.
const (
	RiskSafe     = "SAFE"
	RiskStandard = "STANDARD"
	RiskCritical = "CRITICAL"
	RiskUnknown  = "UNKNOWN"
)

// riskRank maps a risk level to its position in the ordering
// SAFE < STANDARD < CRITICAL < UNKNOWN. Matching is case-insensitive;
// an empty or unrecognized level gets the UNKNOWN rank.
func riskRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case RiskSafe:
		return 0
	case RiskStandard:
		return 1
	case RiskCritical:
		return 2
	default:
		return 3
	}
}

// RiskLabel returns the canonical spelling for a risk level.
func RiskLabel(level string) string {
	switch riskRank(level) {
	case 0:
		return RiskSafe
	case 1:
		return RiskStandard
	case 2:
		return RiskCritical
	default:
		return RiskUnknown
	}
}
