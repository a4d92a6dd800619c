package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

func record(title, url string, occurred *time.Time) domain.IncidentRecord {
	return domain.IncidentRecord{Title: title, URL: url, OccurredAt: occurred}
}

func TestDuplicateByURL_RegardlessOfTitle(t *testing.T) {
	d := New()
	first := record("Crash on Karve Road", "https://news.example/story-1", nil)
	assert.False(t, d.CheckAndCommit(first))

	// Same URL republished with a rewritten headline.
	second := record("Six hurt in Karve Road accident", "https://news.example/story-1", nil)
	assert.True(t, d.IsDuplicate(second))
}

func TestDuplicateByChecksum(t *testing.T) {
	d := New()
	occurred := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first := record("Crash on Karve Road", "https://a.example/1", &occurred)
	first.Summary = "original"
	d.Commit(first)

	second := record("Crash on Karve Road", "https://a.example/1", &occurred)
	second.Summary = "republished with different wording"
	assert.True(t, d.IsDuplicate(second))
}

func TestDuplicateByTitleAndDate(t *testing.T) {
	d := New()
	morning := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	d.Commit(record("Waterlogging in Hadapsar", "https://a.example/1", &morning))

	// Same headline, same calendar day, different feed and URL.
	assert.True(t, d.IsDuplicate(record("Waterlogging in Hadapsar", "https://b.example/2", &evening)))

	// Same headline the next day is a fresh event.
	assert.False(t, d.IsDuplicate(record("Waterlogging in Hadapsar", "https://b.example/3", &nextDay)))
}

func TestDistinctRecordsPass(t *testing.T) {
	d := New()
	assert.False(t, d.CheckAndCommit(record("Crash on Karve Road", "https://a.example/1", nil)))
	assert.False(t, d.CheckAndCommit(record("Tree down in Aundh", "https://a.example/2", nil)))
	assert.False(t, d.CheckAndCommit(record("Fire near Swargate", "https://a.example/3", nil)))
}

func TestEmptyURLDoesNotCollide(t *testing.T) {
	d := New()
	d.Commit(record("Crash on Karve Road", "", nil))
	assert.False(t, d.IsDuplicate(record("Tree down in Aundh", "", nil)))
}

func TestCheckAndCommit_ConcurrentNearDuplicates(t *testing.T) {
	d := New()

	// 50 goroutines race the same record; exactly one may win.
	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.CheckAndCommit(record("Crash on Karve Road", "https://a.example/1", nil)) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
}

func TestSessionIsolation(t *testing.T) {
	rec := record("Crash on Karve Road", "https://a.example/1", nil)

	first := New()
	assert.False(t, first.CheckAndCommit(rec))

	// A fresh session carries no identities over.
	second := New()
	assert.False(t, second.CheckAndCommit(rec))
}

func BenchmarkCheckAndCommit(b *testing.B) {
	d := New()
	for i := 0; i < b.N; i++ {
		d.CheckAndCommit(record(
			fmt.Sprintf("Incident %d", i),
			fmt.Sprintf("https://news.example/%d", i),
			nil,
		))
	}
}
