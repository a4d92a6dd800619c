package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// RawArticle is the common shape produced by the upstream fetcher services
// (news scrapers, social monitors, authority feeds, citizen upload gateway).
type RawArticle struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Content     string      `json:"content"`
	URL         string      `json:"url"`
	PublishedAt string      `json:"publishedAt"`
	Source      SourceField `json:"source"`
}

// CombinedText joins title, description, and content for extraction.
func (a RawArticle) CombinedText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{a.Title, a.Description, a.Content} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// OccurredAt parses the publication timestamp. Returns nil when the field
// is absent or malformed; a bad timestamp is not a reason to drop a report.
func (a RawArticle) OccurredAt() *time.Time {
	if a.PublishedAt == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return nil
	}
	return &t
}

// SourceField tolerates the two upstream encodings of an article source:
// a plain string (name or URL) or an object with a "name" key.
type SourceField struct {
	Name string
}

func (s *SourceField) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.Name = plain
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Name = obj.Name
	return nil
}

func (s SourceField) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name)
}
