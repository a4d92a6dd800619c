package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Validate runs every field-level check on the record and returns all
// violations found. Checks never short-circuit so a caller sees the full
// picture at once. Pass nil bounds to skip regional bound enforcement.
func Validate(r IncidentRecord, bounds *Bounds) []Violation {
	var violations []Violation

	if utf8.RuneCountInString(strings.TrimSpace(r.Title)) < 3 {
		violations = append(violations, Violation{"title", "title must be a non-empty string of at least 3 characters"})
	}

	if r.URL != "" && !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		violations = append(violations, Violation{"url", "url must start with http:// or https://"})
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		violations = append(violations, Violation{"coordinates", "latitude and longitude must both be set or both be unset"})
	}
	if r.Latitude != nil {
		if *r.Latitude < -90 || *r.Latitude > 90 {
			violations = append(violations, Violation{"latitude", fmt.Sprintf("latitude out of range: %v", *r.Latitude)})
		}
	}
	if r.Longitude != nil {
		if *r.Longitude < -180 || *r.Longitude > 180 {
			violations = append(violations, Violation{"longitude", fmt.Sprintf("longitude out of range: %v", *r.Longitude)})
		}
	}
	if bounds != nil && r.Latitude != nil && r.Longitude != nil {
		p := Geo{Lat: *r.Latitude, Lon: *r.Longitude}
		if !bounds.Contains(p) {
			violations = append(violations, Violation{"coordinates", fmt.Sprintf("coordinates (%v, %v) outside configured region", p.Lat, p.Lon)})
		}
	}

	if !ValidStatus(r.Status) {
		violations = append(violations, Violation{"status", fmt.Sprintf("invalid status: %q", r.Status)})
	}

	if r.AssignedCount != len(r.AssignedTo) {
		violations = append(violations, Violation{"assigned_count", fmt.Sprintf("assigned_count %d does not match %d assignees", r.AssignedCount, len(r.AssignedTo))})
	}

	if r.EstimatedVolunteers < 1 {
		violations = append(violations, Violation{"estimated_volunteers", "estimated_volunteers must be at least 1"})
	}

	return violations
}
