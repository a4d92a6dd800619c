// Package dedupe maintains per-batch identity sets for incident records.
package dedupe

import (
	"strings"
	"sync"
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Deduplicator tracks three identity facets for a processing session:
// content checksums, source URLs, and (title, occurrence date) pairs.
// A record matching ANY facet is a duplicate — deliberately permissive,
// because feeds republish near-identical items with one facet altered.
//
// Construct one per batch run (or inject a longer-lived instance for
// cross-batch dedup); there is no hidden process-wide state.
type Deduplicator struct {
	mu        sync.Mutex
	checksums map[string]struct{}
	urls      map[string]struct{}
	titles    map[titleKey]struct{}
}

type titleKey struct {
	title string
	date  string // YYYY-MM-DD, empty when occurrence time is unknown
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		checksums: make(map[string]struct{}),
		urls:      make(map[string]struct{}),
		titles:    make(map[titleKey]struct{}),
	}
}

// IsDuplicate reports whether the record matches any committed identity.
func (d *Deduplicator) IsDuplicate(rec domain.IncidentRecord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isDuplicateLocked(rec)
}

// Commit marks the record's identities as seen. Call only after the record
// passed validation and the duplicate check.
func (d *Deduplicator) Commit(rec domain.IncidentRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commitLocked(rec)
}

// CheckAndCommit performs the duplicate check and, for non-duplicates, the
// identity commit under one lock acquisition. Concurrent workers must use
// this instead of IsDuplicate+Commit, or two near-duplicates could both
// pass the check before either commits. Returns true when the record is a
// duplicate.
func (d *Deduplicator) CheckAndCommit(rec domain.IncidentRecord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isDuplicateLocked(rec) {
		return true
	}
	d.commitLocked(rec)
	return false
}

func (d *Deduplicator) isDuplicateLocked(rec domain.IncidentRecord) bool {
	if _, ok := d.checksums[rec.Checksum()]; ok {
		return true
	}
	if rec.URL != "" {
		if _, ok := d.urls[rec.URL]; ok {
			return true
		}
	}
	if _, ok := d.titles[newTitleKey(rec)]; ok {
		return true
	}
	return false
}

func (d *Deduplicator) commitLocked(rec domain.IncidentRecord) {
	d.checksums[rec.Checksum()] = struct{}{}
	if rec.URL != "" {
		d.urls[rec.URL] = struct{}{}
	}
	if rec.Title != "" {
		d.titles[newTitleKey(rec)] = struct{}{}
	}
}

func newTitleKey(rec domain.IncidentRecord) titleKey {
	k := titleKey{title: strings.TrimSpace(rec.Title)}
	if rec.OccurredAt != nil {
		k.date = rec.OccurredAt.UTC().Format(time.DateOnly)
	}
	return k
}
