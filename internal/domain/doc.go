// Package domain models road disruption reports for a bounded geographic
// region.
//
// # Data Sources
//
// Reports arrive as raw articles from upstream fetcher services: regional
// news scrapers, social media monitors, official traffic-authority feeds,
// and a citizen photo-upload gateway. All fetchers publish the same flat
// article shape (see [RawArticle]); the fetchers themselves are separate
// services and out of scope here.
//
// # Record Identity
//
// A record's content identity is the SHA-256 of title|url|occurred_at
// (see [IncidentRecord.Checksum]). The same underlying event republished by
// a different feed with altered wording hashes to the same identity as long
// as the canonical fields match, which makes reingestion idempotent.
// Deduplication additionally tracks raw source URLs and (title, date) pairs
// because feeds frequently republish with one of the three identity facets
// changed.
//
// # Coordinate Conventions
//
// Latitude and longitude are optional but paired: a record carries both or
// neither. Coordinates must fall within global range and, when regional
// enforcement is on, within the configured bounding box. Geocoding misses
// leave the free-text location in place with nil coordinates rather than
// dropping the record.
//
// # Validation
//
// [Validate] is a pure function that runs every check and reports all
// violations at once. Records failing validation are dropped and counted by
// the pipeline; validation is never fatal to a batch.
package domain
