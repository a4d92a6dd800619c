package incident

import (
	"strings"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// categoryKeywords is the fixed keyword-membership table mapping normalized
// reason strings to categories. Reasons outside every set fall to
// CategoryOther.
var categoryKeywords = map[Category][]string{
	CategoryAccidents:      {"accident", "crash", "collision"},
	CategoryRoadWorks:      {"construction", "roadwork", "maintenance", "repair"},
	CategoryClosures:       {"closure", "blocked", "closed", "road closure"},
	CategoryWeatherHazards: {"flooding", "flood", "rain", "fog", "weather", "landslide"},
	CategoryTrafficJams:    {"congestion", "traffic", "jam", "traffic jam"},
	CategoryVehicleHazards: {"breakdown", "vehicle", "hazard", "vehicle breakdown", "fuel_spill", "debris"},
	CategoryProtests:       {"protest", "rally", "demonstration", "procession", "event"},
}

// prioritySeverity maps a priority label onto the 1-5 severity scale.
var prioritySeverity = map[domain.Priority]int{
	domain.PriorityLow:      2,
	domain.PriorityMedium:   3,
	domain.PriorityHigh:     4,
	domain.PriorityCritical: 5,
}

// CategorizeReason maps a free-form reason string to a category.
func CategorizeReason(reason string) Category {
	normalized := strings.ToLower(strings.TrimSpace(reason))
	for category, words := range categoryKeywords {
		for _, w := range words {
			if normalized == w {
				return category
			}
		}
	}
	return CategoryOther
}

// SeverityFromPriority maps a priority label to 1-5 severity; unknown
// labels get the medium severity.
func SeverityFromPriority(p domain.Priority) int {
	if s, ok := prioritySeverity[p]; ok {
		return s
	}
	return prioritySeverity[domain.PriorityMedium]
}

// ParseProvenance determines origin/trust from the source tag. The second
// return is the verified flag: citizen reports come from a person at the
// scene and are treated as higher trust.
func ParseProvenance(source string) (Provenance, bool) {
	normalized := strings.ToLower(strings.TrimSpace(source))
	switch {
	case normalized == "mobile_upload" || normalized == "citizen_upload":
		return ProvenanceCitizen, true
	case strings.HasPrefix(normalized, "http://") || strings.HasPrefix(normalized, "https://") || normalized == "news_scraper":
		return ProvenanceNews, false
	case normalized == "traffic_authority" || normalized == "official_feed" || normalized == "tomtom":
		return ProvenanceOfficial, false
	default:
		return ProvenanceUnknown, false
	}
}

// Categorize decodes one canonical record into the shared taxonomy.
// It is a pure function: identical input always yields identical output.
func Categorize(rec domain.IncidentRecord) Incident {
	provenance, verified := ParseProvenance(rec.Source)

	inc := Incident{
		Description: rec.Title,
		Category:    CategorizeReason(string(rec.Reason)),
		Severity:    SeverityFromPriority(rec.Priority),
		Provenance:  provenance,
		Verified:    verified,
		Priority:    rec.Priority,
		SourceURL:   rec.URL,
	}
	if point, ok := rec.Coordinates(); ok {
		inc.Location = point
		inc.HasLocation = true
	}
	return inc
}

// CategorizeAll decodes a slice of records, preserving order.
func CategorizeAll(records []domain.IncidentRecord) []Incident {
	out := make([]Incident, 0, len(records))
	for _, rec := range records {
		out = append(out, Categorize(rec))
	}
	return out
}
