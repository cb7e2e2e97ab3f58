// package cache persists track match results across runs.
//
// The cache is a key-value mapping from a track fingerprint to the most
// recent [models.MatchResult] for it, backed by SQLite. "No match" outcomes
// are stored too, so repeated runs do not re-query the target catalog for
// tracks already known to be unavailable.
package cache

import (
	"database/sql"
	"fmt"

	"github.com/plsync/plsync/internal/match"
	"github.com/plsync/plsync/internal/models"
)

// MatchCache stores one MatchResult per fingerprint. Writes are
// last-write-wins; concurrent multi-process access is not coordinated.
type MatchCache struct {
	db *sql.DB
}

// New creates a MatchCache over an open database connection.
// The matches table must already exist (see shared.RunMigrations).
func New(db *sql.DB) *MatchCache {
	return &MatchCache{db: db}
}

// Lookup returns the cached result for fp, reporting whether one exists.
func (c *MatchCache) Lookup(fp match.Fingerprint) (models.MatchResult, bool, error) {
	query := `
		SELECT target_id, found, score, matched_at
		FROM matches
		WHERE fingerprint = ?
	`

	var (
		targetID sql.NullString
		result   models.MatchResult
	)

	err := c.db.QueryRow(query, string(fp)).Scan(&targetID, &result.Found, &result.Score, &result.MatchedAt)
	if err == sql.ErrNoRows {
		return models.MatchResult{}, false, nil
	}
	if err != nil {
		return models.MatchResult{}, false, fmt.Errorf("failed to scan match: %w", err)
	}

	if targetID.Valid {
		result.TargetID = targetID.String
	}

	return result, true, nil
}

// Store upserts the result for fp. An existing row for the same fingerprint
// is replaced.
func (c *MatchCache) Store(fp match.Fingerprint, result models.MatchResult) error {
	query := `
		INSERT INTO matches (fingerprint, target_id, found, score, matched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			target_id = excluded.target_id,
			found = excluded.found,
			score = excluded.score,
			matched_at = excluded.matched_at
	`

	var targetID sql.NullString
	if result.Found {
		targetID = sql.NullString{String: result.TargetID, Valid: true}
	}

	if _, err := c.db.Exec(query, string(fp), targetID, result.Found, result.Score, result.MatchedAt); err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}

	return nil
}

// Clear removes every cached match.
func (c *MatchCache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM matches"); err != nil {
		return fmt.Errorf("failed to clear match cache: %w", err)
	}
	return nil
}

// Len returns the number of cached fingerprints.
func (c *MatchCache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM matches").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}
