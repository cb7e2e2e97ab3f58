package match

import (
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Weights controls the contribution of each signal to the composite score.
// Title and artist similarity dominate; duration closeness is a tie-breaker
// and veto rather than the primary signal.
type Weights struct {
	Title    float64
	Artist   float64
	Duration float64
}

// DefaultWeights returns the empirically tuned default weight set.
func DefaultWeights() Weights {
	return Weights{Title: 0.40, Artist: 0.40, Duration: 0.20}
}

// Score combines the three similarity signals into a composite in [0,1].
// Pure; unit-testable without any network call.
func Score(titleSim, artistSim, durCloseness float64, w Weights) float64 {
	total := w.Title + w.Artist + w.Duration
	if total == 0 {
		return 0
	}
	return (w.Title*titleSim + w.Artist*artistSim + w.Duration*durCloseness) / total
}

// Similarity computes fuzzy string similarity in [0,1] between two strings
// after fingerprint normalization, using Levenshtein distance.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	dist := fuzzy.LevenshteinDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}

	return 1 - float64(dist)/float64(longest)
}

// DurationCloseness maps the absolute duration difference between a source
// track and a candidate to [0,1]. Differences within pad seconds score 1.0
// and decay linearly to 0 at the veto bound; candidates beyond veto seconds
// are excluded outright regardless of text similarity (ok = false).
func DurationCloseness(srcSeconds, candSeconds, pad, veto int) (float64, bool) {
	diff := srcSeconds - candSeconds
	if diff < 0 {
		diff = -diff
	}

	if diff > veto {
		return 0, false
	}
	if diff <= pad {
		return 1, true
	}

	return 1 - float64(diff-pad)/float64(veto-pad), true
}
