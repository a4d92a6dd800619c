package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Reason is a normalized incident reason code.
type Reason string

const (
	ReasonCrash        Reason = "crash"
	ReasonCollision    Reason = "collision"
	ReasonFire         Reason = "fire"
	ReasonFlood        Reason = "flood"
	ReasonClosure      Reason = "closure"
	ReasonBlocked      Reason = "blocked"
	ReasonBreakdown    Reason = "breakdown"
	ReasonLandslide    Reason = "landslide"
	ReasonAccident     Reason = "accident"
	ReasonConstruction Reason = "construction"
	ReasonFuelSpill    Reason = "fuel_spill"
	ReasonDebris       Reason = "debris"
	ReasonWeather      Reason = "weather"
	ReasonUnknown      Reason = "unknown"
)

// ParseReason maps a free-form keyword to a reason code. Unrecognized
// keywords map to ReasonUnknown.
func ParseReason(word string) Reason {
	switch Reason(NormalizeKeyword(word)) {
	case ReasonCrash, ReasonCollision, ReasonFire, ReasonFlood, ReasonClosure,
		ReasonBlocked, ReasonBreakdown, ReasonLandslide, ReasonAccident,
		ReasonConstruction, ReasonFuelSpill, ReasonDebris, ReasonWeather:
		return Reason(NormalizeKeyword(word))
	case "spill":
		return ReasonFuelSpill
	default:
		return ReasonUnknown
	}
}

// Status is the assignment lifecycle state of a record. Status transitions
// happen in the external assignment workflow; ingestion always produces
// StatusUnassigned.
type Status string

const (
	StatusUnassigned        Status = "unassigned"
	StatusPartiallyAssigned Status = "partially_assigned"
	StatusAssigned          Status = "assigned"
	StatusInProgress        Status = "in_progress"
	StatusResolved          Status = "resolved"
)

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUnassigned, StatusPartiallyAssigned, StatusAssigned,
		StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Priority is the operational urgency label attached to a record.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority normalizes a priority label, defaulting to medium.
func ParsePriority(s string) Priority {
	switch Priority(NormalizeKeyword(s)) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(NormalizeKeyword(s))
	default:
		return PriorityMedium
	}
}

// IncidentRecord is a single validated road disruption report.
// Records are immutable after validation and deduplication; only the
// external assignment workflow mutates status and assignee fields.
type IncidentRecord struct {
	Title               string     `json:"title"`
	URL                 string     `json:"url,omitempty"`
	Summary             string     `json:"summary,omitempty"`
	Reason              Reason     `json:"reason,omitempty"`
	OccurredAt          *time.Time `json:"occurred_at,omitempty"`
	LocationText        string     `json:"location_text,omitempty"`
	Latitude            *float64   `json:"latitude,omitempty"`
	Longitude           *float64   `json:"longitude,omitempty"`
	Source              string     `json:"source,omitempty"`
	Status              Status     `json:"status"`
	AssignedCount       int        `json:"assigned_count"`
	AssignedTo          []string   `json:"assigned_to"`
	Priority            Priority   `json:"priority"`
	ActionsNeeded       []string   `json:"actions_needed,omitempty"`
	RequiredSkills      []string   `json:"required_skills,omitempty"`
	ResolutionSteps     []string   `json:"resolution_steps,omitempty"`
	EstimatedVolunteers int        `json:"estimated_volunteers"`

	// Citizen-upload extras, unset for feed-sourced records.
	ReporterID string `json:"reporter_id,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
}

// Checksum produces the content identity used for deduplication.
// It is stable across repeated ingestion of the same underlying event:
// the hash input is title, source URL, and occurrence timestamp only,
// so republished copies with altered summaries collapse to one identity.
func (r IncidentRecord) Checksum() string {
	occurred := ""
	if r.OccurredAt != nil {
		occurred = r.OccurredAt.UTC().Format(time.RFC3339)
	}
	key := fmt.Sprintf("%s|%s|%s", r.Title, r.URL, occurred)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Coordinates returns the record's position when both latitude and
// longitude are set.
func (r IncidentRecord) Coordinates() (Geo, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Geo{}, false
	}
	return Geo{Lat: *r.Latitude, Lon: *r.Longitude}, true
}
