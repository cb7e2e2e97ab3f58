// Package models defines the domain entities shared by the sync pipeline.
//
// Two categories of types live here:
//
// 1. Per-run values built from live API responses and never persisted:
//   - [Track] : a source catalog track (identity = SourceID)
//   - [TargetTrack] : a target catalog search candidate or playlist entry
//   - [Playlist] / [PlaylistSnapshot] : playlist metadata and contents
//   - [ReconciliationPlan] : computed add/remove/unchanged sets
//   - [Outcome] : per-unit result from the batch scheduler
//
// 2. Durable records owned by the core:
//   - [MatchResult] : persisted in the match cache keyed by fingerprint
//   - [JournalEntry] : appended to the operation journal, immutable thereafter
package models
