package models

import (
	"time"
)

// Track is a track as reported by the source catalog.
//
// Identity is SourceID; equality for matching purposes is fuzzy, handled by
// internal/match rather than by comparing fields directly.
type Track struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"` // Duration in seconds
}

// TargetTrack is a candidate returned by the target catalog's search, or an
// entry of an existing target playlist.
type TargetTrack struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"` // Duration in seconds
}

// Playlist holds playlist metadata from either service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// PlaylistSnapshot is a playlist plus its contents at fetch time.
//
// Desired (source) snapshots carry Tracks; observed (target) snapshots carry
// TargetIDs.
type PlaylistSnapshot struct {
	Playlist  Playlist `json:"playlist"`
	Tracks    []Track  `json:"tracks,omitempty"`
	TargetIDs []string `json:"target_ids,omitempty"`
}

// MatchResult is the outcome of matching one source track against the target
// catalog. Found is false for "no acceptable match", which is still cached so
// repeated runs do not re-query.
type MatchResult struct {
	TargetID  string    `json:"target_id,omitempty"`
	Found     bool      `json:"found"`
	Score     float64   `json:"score"`
	MatchedAt time.Time `json:"matched_at"`
}

// ReconciliationPlan holds the add/remove/unchanged sets needed to bring a
// target playlist in line with a desired track list. The three sets are
// pairwise disjoint and together cover every id referenced by either side.
type ReconciliationPlan struct {
	ToAdd     []string // resolved ids missing from observed, in desired order
	ToRemove  []string // observed ids absent from desired; empty in append-only mode
	Unchanged []string // intersection of desired and observed
}

// OperationKind enumerates journaled mutating actions.
type OperationKind string

const (
	OpCreate    OperationKind = "create"
	OpUpdate    OperationKind = "update"
	OpAdd       OperationKind = "add"
	OpRemove    OperationKind = "remove"
	OpMatchFail OperationKind = "match-fail"
)

// JournalEntry records a single mutating action and its outcome.
// Entries are immutable once written; the journal only grows.
type JournalEntry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Kind       OperationKind `json:"kind"`
	Playlist   string        `json:"playlist,omitempty"`
	PlaylistID string        `json:"playlist_id,omitempty"`
	TrackID    string        `json:"track_id,omitempty"`
	Outcome    string        `json:"outcome"`
	Detail     string        `json:"detail,omitempty"`
	TrackHash  string        `json:"track_hash,omitempty"`
	TrackCount int           `json:"track_count,omitempty"`
}

// Journal entry outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeScanned = "scanned"
)

// OutcomeStatus classifies the result of one scheduled work unit.
type OutcomeStatus int

const (
	StatusSuccess OutcomeStatus = iota
	StatusSkipped
	StatusFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

// Outcome is the per-unit result reported by the batch scheduler.
type Outcome struct {
	Unit   string
	Status OutcomeStatus
	Err    error
}
