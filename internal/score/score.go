package score

import "sentinel/internal/model"

// threatThresholds are scanned in descending order; the first satisfied
// boundary wins.
var threatThresholds = []struct {
	min   int
	level model.Severity
}{
	{20, model.SeverityCritical},
	{10, model.SeverityHigh},
	{4, model.SeverityMedium},
	{0, model.SeverityLow},
}

// Score sums the severity weights of the given events.
func Score(events []model.SecurityEvent) int {
	total := 0
	for i := range events {
		total += events[i].Severity.Weight()
	}
	return total
}

// Level maps an aggregate score to a discrete threat level.
func Level(total int) model.Severity {
	for _, t := range threatThresholds {
		if total >= t.min {
			return t.level
		}
	}
	return model.SeverityLow
}

// ThreatLevel is the composition used by the coordinator: the threat level
// of a set of recent events. Empty input is low.
func ThreatLevel(events []model.SecurityEvent) model.Severity {
	return Level(Score(events))
}
