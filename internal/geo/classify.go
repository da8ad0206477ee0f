// Package geo builds the department boundary index and classifies crime rates.
package geo

import "github.com/sells-group/crimemap/internal/model"

// Rate thresholds (incidents per thousand inhabitants).
const (
	mediumRateThreshold = 2.0 // rate >= 2 is at least medium
	highRateThreshold   = 5.0 // rate >= 5 is high
)

// Marker colors, shared by map markers and the legend.
const (
	ColorLow    = "green"
	ColorMedium = "blue"
	ColorHigh   = "red"
)

// Classify returns the severity bucket for a rate.
// Rules:
//   - low: rate < 2
//   - medium: 2 <= rate < 5
//   - high: rate >= 5
func Classify(rate float64) model.Severity {
	switch {
	case rate < mediumRateThreshold:
		return model.SeverityLow
	case rate < highRateThreshold:
		return model.SeverityMedium
	default:
		return model.SeverityHigh
	}
}

// MarkerColor returns the map color of a severity.
func MarkerColor(s model.Severity) string {
	switch s {
	case model.SeverityLow:
		return ColorLow
	case model.SeverityMedium:
		return ColorMedium
	default:
		return ColorHigh
	}
}

// LegendItem is one row of the severity legend.
type LegendItem struct {
	Severity model.Severity `json:"severity"`
	Color    string         `json:"color"`
	Label    string         `json:"label"`
}

// LegendItems returns the legend rows from lowest to highest severity.
func LegendItems() []LegendItem {
	labels := map[model.Severity]string{
		model.SeverityLow:    "< 2",
		model.SeverityMedium: "2 - 5",
		model.SeverityHigh:   ">= 5",
	}
	items := make([]LegendItem, 0, len(labels))
	for _, s := range model.AllSeverities() {
		items = append(items, LegendItem{Severity: s, Color: MarkerColor(s), Label: labels[s]})
	}
	return items
}
