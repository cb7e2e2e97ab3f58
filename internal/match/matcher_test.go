package match

import (
	"context"
	"errors"
	"testing"

	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
)

type fakeSearcher struct {
	results []models.TargetTrack
	err     error
	calls   int
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]models.TargetTrack, error) {
	f.calls++
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type memCache struct {
	entries map[Fingerprint]models.MatchResult
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[Fingerprint]models.MatchResult)}
}

func (m *memCache) Lookup(fp Fingerprint) (models.MatchResult, bool, error) {
	result, ok := m.entries[fp]
	return result, ok, nil
}

func (m *memCache) Store(fp Fingerprint, result models.MatchResult) error {
	m.entries[fp] = result
	return nil
}

type fakeSink struct {
	recorded []models.Track
}

func (f *fakeSink) Record(track models.Track) error {
	f.recorded = append(f.recorded, track)
	return nil
}

func TestFindBestMatch(t *testing.T) {
	ctx := context.Background()
	track := models.Track{SourceID: "s1", Title: "Song A", Artist: "Artist X", Duration: 240}

	t.Run("picks higher composite score", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_1", Title: "Song A", Artist: "Artist X", Duration: 241},
			{ID: "yt_2", Title: "Song A (Live)", Artist: "Artist X", Duration: 500},
		}}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Found {
			t.Fatal("expected a match")
		}
		if result.TargetID != "yt_1" {
			t.Errorf("picked %s, want yt_1", result.TargetID)
		}
		if result.Score <= 0.9 {
			t.Errorf("near-perfect candidate scored %v, want > 0.9", result.Score)
		}
	})

	t.Run("duration veto excludes text-perfect candidate", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_long", Title: "Song A", Artist: "Artist X", Duration: 240 + 60},
		}}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Found {
			t.Errorf("candidate 60s off should be vetoed, got match %s", result.TargetID)
		}
	})

	t.Run("unknown source duration matches on text alone", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_1", Title: "Song A", Artist: "Artist X", Duration: 200},
		}}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		noDuration := models.Track{SourceID: "s1", Title: "Song A", Artist: "Artist X"}
		result, err := m.FindBestMatch(ctx, noDuration, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Found {
			t.Fatal("text-perfect candidate should match when the source duration is unknown")
		}
		if result.TargetID != "yt_1" {
			t.Errorf("picked %s, want yt_1", result.TargetID)
		}
		if result.Score <= 0.9 {
			t.Errorf("duration-less match scored %v, want > 0.9", result.Score)
		}
	})

	t.Run("threshold rejects weak candidates", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_bad", Title: "Completely Different", Artist: "Nobody", Duration: 240},
		}}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Found {
			t.Errorf("weak candidate should not clear threshold, got %s", result.TargetID)
		}
	})

	t.Run("tie broken by closer duration", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_far", Title: "Song A", Artist: "Artist X", Duration: 238},
			{ID: "yt_near", Title: "Song A", Artist: "Artist X", Duration: 240},
		}}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Both are within the pad so they score identically.
		if result.TargetID != "yt_near" {
			t.Errorf("picked %s, want yt_near", result.TargetID)
		}
	})

	t.Run("full tie keeps earlier search result", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_first", Title: "Song A", Artist: "Artist X", Duration: 240},
			{ID: "yt_second", Title: "Song A", Artist: "Artist X", Duration: 240},
		}}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TargetID != "yt_first" {
			t.Errorf("picked %s, want yt_first", result.TargetID)
		}
	})

	t.Run("cache hit skips search", func(t *testing.T) {
		cache := newMemCache()
		cached := models.MatchResult{TargetID: "yt_cached", Found: true, Score: 0.99}
		cache.Store(FingerprintOf(track.Title, track.Artist), cached)

		searcher := &fakeSearcher{}
		m := NewMatcher(cache, searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TargetID != "yt_cached" {
			t.Errorf("got %s, want cached result", result.TargetID)
		}
		if searcher.calls != 0 {
			t.Errorf("search called %d times, want 0", searcher.calls)
		}
	})

	t.Run("useCached false bypasses cache", func(t *testing.T) {
		cache := newMemCache()
		cache.Store(FingerprintOf(track.Title, track.Artist), models.MatchResult{TargetID: "yt_stale", Found: true})

		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_fresh", Title: "Song A", Artist: "Artist X", Duration: 240},
		}}
		m := NewMatcher(cache, searcher, DefaultConfig(), nil, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TargetID != "yt_fresh" {
			t.Errorf("got %s, want fresh search result", result.TargetID)
		}
		if searcher.calls != 1 {
			t.Errorf("search called %d times, want 1", searcher.calls)
		}
	})

	t.Run("outcome is written back to cache", func(t *testing.T) {
		cache := newMemCache()
		searcher := &fakeSearcher{results: []models.TargetTrack{
			{ID: "yt_1", Title: "Song A", Artist: "Artist X", Duration: 240},
		}}
		m := NewMatcher(cache, searcher, DefaultConfig(), nil, nil)

		if _, err := m.FindBestMatch(ctx, track, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stored, ok, _ := cache.Lookup(FingerprintOf(track.Title, track.Artist))
		if !ok {
			t.Fatal("result not cached")
		}
		if stored.TargetID != "yt_1" {
			t.Errorf("cached %s, want yt_1", stored.TargetID)
		}
	})

	t.Run("no-match outcome is cached too", func(t *testing.T) {
		cache := newMemCache()
		searcher := &fakeSearcher{}
		m := NewMatcher(cache, searcher, DefaultConfig(), nil, nil)

		if _, err := m.FindBestMatch(ctx, track, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stored, ok, _ := cache.Lookup(FingerprintOf(track.Title, track.Artist))
		if !ok {
			t.Fatal("no-match result not cached")
		}
		if stored.Found {
			t.Error("cached result should be a no-match")
		}

		// Second lookup with the cache enabled must not hit the catalog.
		if _, err := m.FindBestMatch(ctx, track, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if searcher.calls != 1 {
			t.Errorf("search called %d times, want 1", searcher.calls)
		}
	})

	t.Run("transient error propagates", func(t *testing.T) {
		searcher := &fakeSearcher{err: shared.ErrRateLimited}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), nil, nil)

		_, err := m.FindBestMatch(ctx, track, false)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("got %v, want ErrRateLimited", err)
		}
	})

	t.Run("permanent error becomes no match", func(t *testing.T) {
		searcher := &fakeSearcher{err: errors.New("malformed response")}
		sink := &fakeSink{}
		m := NewMatcher(newMemCache(), searcher, DefaultConfig(), sink, nil)

		result, err := m.FindBestMatch(ctx, track, false)
		if err != nil {
			t.Fatalf("permanent failure should not error: %v", err)
		}
		if result.Found {
			t.Error("expected no match")
		}
		if len(sink.recorded) != 1 {
			t.Errorf("recorded %d unmatched tracks, want 1", len(sink.recorded))
		}
	})

	t.Run("unmatched track reaches the sink", func(t *testing.T) {
		sink := &fakeSink{}
		m := NewMatcher(newMemCache(), &fakeSearcher{}, DefaultConfig(), sink, nil)

		if _, err := m.FindBestMatch(ctx, track, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sink.recorded) != 1 || sink.recorded[0].SourceID != "s1" {
			t.Errorf("sink contents = %+v, want the source track", sink.recorded)
		}
	})

	t.Run("search query drops featuring suffix", func(t *testing.T) {
		searcher := &fakeSearcher{}
		m := NewMatcher(nil, searcher, DefaultConfig(), nil, nil)

		feat := models.Track{Title: "Song A (feat. Someone)", Artist: "Artist X", Duration: 240}
		if _, err := m.FindBestMatch(ctx, feat, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(searcher.queries) != 1 || searcher.queries[0] != "Artist X Song A" {
			t.Errorf("queries = %v, want [Artist X Song A]", searcher.queries)
		}
	})
}
