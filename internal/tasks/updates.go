package tasks

import (
	"fmt"

	"github.com/plsync/plsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchTarget
	MatchTracks
	Reconcile
	CreatePlaylist
	AddTracks
	RemoveTracks
	LikeTracks
	ScanLibrary
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchTarget:
		return "fetch_target"
	case MatchTracks:
		return "match_tracks"
	case Reconcile:
		return "reconcile"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case RemoveTracks:
		return "remove_tracks"
	case LikeTracks:
		return "like_tracks"
	case ScanLibrary:
		return "scan_library"
	default:
		return ""
	}
}

func fetchSourceUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s from Spotify...", name),
	}
}

func fetchTargetUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTarget,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching target playlist (%s)...", name),
	}
}

func matchTrackUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func reconcileUpdate(plan models.ReconciliationPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase: Reconcile,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Plan: %d to add, %d to remove, %d unchanged",
			len(plan.ToAdd), len(plan.ToRemove), len(plan.Unchanged)),
		Data: plan,
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist on YouTube Music: %s", name),
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding tracks (%d/%d)...", step, total),
	}
}

func removeTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removing %d tracks...", count),
	}
}

func likeTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LikeTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Liking tracks (%d/%d)...", step, total),
	}
}

func scanLibraryUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Found: %s", step, total, name),
	}
}
