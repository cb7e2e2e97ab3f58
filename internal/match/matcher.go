package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
)

// Searcher is the slice of the target catalog client the matcher needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.TargetTrack, error)
}

// Cache is the slice of the match cache the matcher needs.
type Cache interface {
	Lookup(fp Fingerprint) (models.MatchResult, bool, error)
	Store(fp Fingerprint, result models.MatchResult) error
}

// NotFoundRecorder receives tracks whose match attempt ended with no
// acceptable candidate, for later manual review.
type NotFoundRecorder interface {
	Record(track models.Track) error
}

// Config is the matching policy: signal weights, the minimum composite score
// a candidate must reach, and the duration windows.
type Config struct {
	Weights         Weights
	AcceptThreshold float64
	DurationPad     int // seconds of slack at full duration closeness
	DurationVeto    int // seconds beyond which a candidate is excluded
}

// DefaultConfig returns the default matching policy.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		AcceptThreshold: 0.75,
		DurationPad:     2,
		DurationVeto:    10,
	}
}

// Matcher resolves source tracks against the target catalog, consulting and
// populating the match cache. It performs no retries itself: transient
// search errors propagate so the batch layer can retry with backoff, while
// permanent lookup failures become "no match" results.
type Matcher struct {
	cache    Cache
	searcher Searcher
	cfg      Config
	notFound NotFoundRecorder
	logger   *log.Logger
	now      func() time.Time
}

// NewMatcher creates a Matcher. cache and notFound may be nil, in which case
// memoization and not-found recording are skipped.
func NewMatcher(cache Cache, searcher Searcher, cfg Config, notFound NotFoundRecorder, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.DurationVeto <= cfg.DurationPad {
		cfg.DurationVeto = cfg.DurationPad + 1
	}

	return &Matcher{
		cache:    cache,
		searcher: searcher,
		cfg:      cfg,
		notFound: notFound,
		logger:   logger,
		now:      time.Now,
	}
}

// FindBestMatch returns the best target catalog match for track.
//
// When useCached is true a cache hit short-circuits the search entirely.
// Either way the outcome (including "no match") is written back to the cache
// keyed by the track's fingerprint, so future runs benefit.
func (m *Matcher) FindBestMatch(ctx context.Context, track models.Track, useCached bool) (models.MatchResult, error) {
	fp := FingerprintOf(track.Title, track.Artist)

	if useCached && m.cache != nil {
		cached, ok, err := m.cache.Lookup(fp)
		if err != nil {
			m.logger.Warn("cache lookup failed", "fingerprint", fp, "err", err)
		} else if ok {
			return cached, nil
		}
	}

	query := SearchQuery(track.Title, track.Artist)
	candidates, err := m.searcher.Search(ctx, query)
	if err != nil {
		if isTransient(err) {
			return models.MatchResult{}, fmt.Errorf("search %q: %w", query, err)
		}
		// Permanent lookup failures become data, not errors.
		m.logger.Warn("search failed permanently, treating as no match", "query", query, "err", err)
		candidates = nil
	}

	result := m.selectBest(track, candidates)

	if m.cache != nil {
		if err := m.cache.Store(fp, result); err != nil {
			m.logger.Warn("cache store failed", "fingerprint", fp, "err", err)
		}
	}

	if !result.Found && m.notFound != nil {
		if err := m.notFound.Record(track); err != nil {
			m.logger.Warn("failed to record unmatched track", "track", track.Title, "err", err)
		}
	}

	return result, nil
}

// selectBest scores every candidate and picks the winner, or reports no
// match when nothing clears the acceptance threshold.
//
// A zero source duration means the duration is unknown: the veto is skipped
// and the duration term carries no weight, so text similarity alone decides.
//
// Ties on composite score prefer the candidate with closer duration, then
// the one returned earlier by the catalog search.
func (m *Matcher) selectBest(track models.Track, candidates []models.TargetTrack) models.MatchResult {
	const epsilon = 1e-9

	bestIdx := -1
	bestScore := 0.0
	bestDiff := 0

	for i, cand := range candidates {
		closeness := 1.0
		weights := m.cfg.Weights
		diff := 0

		if track.Duration > 0 {
			c, ok := DurationCloseness(track.Duration, cand.Duration, m.cfg.DurationPad, m.cfg.DurationVeto)
			if !ok {
				continue
			}
			closeness = c

			diff = track.Duration - cand.Duration
			if diff < 0 {
				diff = -diff
			}
		} else {
			weights.Duration = 0
		}

		titleSim := Similarity(track.Title, cand.Title)
		artistSim := Similarity(track.Artist, cand.Artist)
		score := Score(titleSim, artistSim, closeness, weights)

		better := bestIdx == -1 ||
			score > bestScore+epsilon ||
			(score > bestScore-epsilon && diff < bestDiff)

		if better {
			bestIdx = i
			bestScore = score
			bestDiff = diff
		}
	}

	if bestIdx == -1 || bestScore < m.cfg.AcceptThreshold {
		return models.MatchResult{Found: false, MatchedAt: m.now()}
	}

	return models.MatchResult{
		TargetID:  candidates[bestIdx].ID,
		Found:     true,
		Score:     bestScore,
		MatchedAt: m.now(),
	}
}

// isTransient reports whether a search error should bubble up for the batch
// layer to retry, rather than being absorbed as "no match".
func isTransient(err error) bool {
	return errors.Is(err, shared.ErrRateLimited) ||
		errors.Is(err, shared.ErrServiceUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
