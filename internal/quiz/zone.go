package quiz

// Zone is the coarse readiness band derived from the summed readiness scores.
type Zone string

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// Readiness band boundaries (inclusive).
const (
	greenMin  = 12
	yellowMin = 7
)

// ClassifyReadiness maps the readiness total to a zone. Totals above the
// theoretical maximum clamp to green. The fear total is deliberately not an
// input here: it is collected and reported alongside the zone, but the band
// depends on readiness alone.
func ClassifyReadiness(readinessTotal int) Zone {
	switch {
	case readinessTotal >= greenMin:
		return ZoneGreen
	case readinessTotal >= yellowMin:
		return ZoneYellow
	default:
		return ZoneRed
	}
}
