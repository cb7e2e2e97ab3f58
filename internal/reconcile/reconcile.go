// package reconcile computes the minimal operation set needed to bring a
// target playlist in line with a desired track list.
//
// Planning is pure: resolving desired tracks to target ids and applying the
// resulting plan against the target service are both the caller's job.
package reconcile

import (
	"github.com/plsync/plsync/internal/models"
)

// Plan compares the resolved desired target ids (in desired order, no-match
// tracks already skipped) against the observed target playlist contents.
//
// ToAdd preserves desired order; duplicate desired ids keep their first
// position only, so applying a plan is idempotent. When appendOnly is true
// ToRemove is always empty regardless of observed content.
func Plan(desired []string, observed []string, appendOnly bool) models.ReconciliationPlan {
	observedSet := make(map[string]struct{}, len(observed))
	for _, id := range observed {
		observedSet[id] = struct{}{}
	}

	desiredSet := make(map[string]struct{}, len(desired))
	plan := models.ReconciliationPlan{}

	for _, id := range desired {
		if id == "" {
			continue
		}
		if _, dup := desiredSet[id]; dup {
			continue
		}
		desiredSet[id] = struct{}{}

		if _, present := observedSet[id]; present {
			plan.Unchanged = append(plan.Unchanged, id)
		} else {
			plan.ToAdd = append(plan.ToAdd, id)
		}
	}

	if !appendOnly {
		for _, id := range observed {
			if _, wanted := desiredSet[id]; !wanted {
				plan.ToRemove = append(plan.ToRemove, id)
			}
		}
	}

	return plan
}

// UpToDate reports whether a playlist is already close enough to the desired
// state to skip applying the plan: the fraction of resolved desired tracks
// already present must reach tolerance.
//
// The denominator is the resolved desired count; with nothing resolved the
// ratio is undefined and the playlist is treated as up to date.
func UpToDate(plan models.ReconciliationPlan, resolvedCount int, tolerance float64) bool {
	if resolvedCount <= 0 {
		return true
	}
	return float64(len(plan.Unchanged))/float64(resolvedCount) >= tolerance
}
