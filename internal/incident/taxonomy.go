// Package incident maps heterogeneous incident sources into the shared
// category/provenance taxonomy consumed by risk scoring and clustering.
package incident

import (
	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Category is the closed set of incident categories. Free-form reason
// strings are decoded into it exactly once, at the categorizer boundary.
type Category string

const (
	CategoryAccidents      Category = "accidents"
	CategoryRoadWorks      Category = "road_works"
	CategoryClosures       Category = "closures"
	CategoryWeatherHazards Category = "weather_hazards"
	CategoryTrafficJams    Category = "traffic_jams"
	CategoryVehicleHazards Category = "vehicle_hazards"
	CategoryProtests       Category = "protests"
	CategoryOther          Category = "other"
)

// Provenance classifies the trust/origin of a report.
type Provenance string

const (
	// ProvenanceCitizen marks reports submitted by a person physically at
	// the scene (mobile uploads). These are flagged verified.
	ProvenanceCitizen Provenance = "citizen_report"
	// ProvenanceNews marks reports scraped from news or social feeds.
	ProvenanceNews Provenance = "news_feed"
	// ProvenanceOfficial marks reports from traffic-authority feeds.
	ProvenanceOfficial Provenance = "official_feed"
	ProvenanceUnknown  Provenance = "unknown"
)

// Incident is a categorized report ready for scoring and clustering.
type Incident struct {
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Severity    int             `json:"severity"` // 1-5
	Provenance  Provenance      `json:"provenance"`
	Verified    bool            `json:"verified"`
	Priority    domain.Priority `json:"priority"`
	Location    domain.Geo      `json:"location"`
	HasLocation bool            `json:"has_location"`
	SourceURL   string          `json:"source_url,omitempty"`
}
