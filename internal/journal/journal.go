// package journal persists an append-only record of every mutating operation
// so runs are auditable and interrupted transfers can be diagnosed.
//
// The journal is a JSONL file: one JSON-encoded entry per line, appended and
// never rewritten. Aggregation re-reads the file on demand; the journal is
// small enough that an index is not worth the bookkeeping.
package journal

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/internal/match"
	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
)

// Journal appends operation entries to a JSONL file.
type Journal struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
}

// New creates a Journal writing to path. The parent directory is created on
// first append, not here, so constructing a Journal never touches disk.
func New(path string, logger *log.Logger) *Journal {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Journal{path: path, logger: logger}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one entry as a single JSON line. Missing ID and Timestamp
// fields are filled in.
func (j *Journal) Append(entry models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = shared.GenerateID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	return f.Sync()
}

// Entries reads every entry from the journal in write order. A missing file
// is an empty journal, not an error. Unparseable lines are skipped with a
// warning so one corrupt line does not poison aggregation.
func (j *Journal) Entries() ([]models.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var entries []models.JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry models.JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			j.logger.Warn("skipping malformed journal line", "line", lineNo, "err", err)
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read journal: %w", err)
	}

	return entries, nil
}

// PlaylistStats summarizes journal activity for one playlist.
type PlaylistStats struct {
	Name        string    `json:"name"`
	PlaylistID  string    `json:"playlist_id,omitempty"`
	Operations  int       `json:"operations"`
	TracksAdded int       `json:"tracks_added"`
	Failures    int       `json:"failures"`
	LastUpdated time.Time `json:"last_updated"`
}

// Stats is the aggregate view of the journal, for the log-stats command.
type Stats struct {
	Total     int                          `json:"total"`
	ByKind    map[models.OperationKind]int `json:"by_kind"`
	ByOutcome map[string]int               `json:"by_outcome"`
	Playlists []PlaylistStats              `json:"playlists"`
	First     time.Time                    `json:"first,omitempty"`
	Last      time.Time                    `json:"last,omitempty"`
}

// Aggregate folds the journal into totals per operation kind, per outcome and
// per playlist. Playlists are keyed by name, matching how the update commands
// look them up on the target side.
func (j *Journal) Aggregate() (Stats, error) {
	entries, err := j.Entries()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByKind:    make(map[models.OperationKind]int),
		ByOutcome: make(map[string]int),
	}

	byPlaylist := make(map[string]*PlaylistStats)
	var order []string

	for _, e := range entries {
		stats.Total++
		stats.ByKind[e.Kind]++
		stats.ByOutcome[e.Outcome]++

		if stats.First.IsZero() || e.Timestamp.Before(stats.First) {
			stats.First = e.Timestamp
		}
		if e.Timestamp.After(stats.Last) {
			stats.Last = e.Timestamp
		}

		if e.Playlist == "" {
			continue
		}

		ps, ok := byPlaylist[e.Playlist]
		if !ok {
			ps = &PlaylistStats{Name: e.Playlist}
			byPlaylist[e.Playlist] = ps
			order = append(order, e.Playlist)
		}

		ps.Operations++
		if e.PlaylistID != "" {
			ps.PlaylistID = e.PlaylistID
		}
		if e.Kind == models.OpAdd && e.Outcome == models.OutcomeOK {
			ps.TracksAdded += max(e.TrackCount, 1)
		}
		if e.Outcome == models.OutcomeFailed {
			ps.Failures++
		}
		if e.Timestamp.After(ps.LastUpdated) {
			ps.LastUpdated = e.Timestamp
		}
	}

	for _, name := range order {
		stats.Playlists = append(stats.Playlists, *byPlaylist[name])
	}

	return stats, nil
}

// TrackedPlaylists returns the names of every playlist the journal has seen,
// in first-appearance order.
func (j *Journal) TrackedPlaylists() ([]string, error) {
	stats, err := j.Aggregate()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(stats.Playlists))
	for _, ps := range stats.Playlists {
		names = append(names, ps.Name)
	}
	return names, nil
}

// TrackHash is a stable short identifier for a track, derived from its
// normalized fingerprint. It survives source id churn across re-exports.
func TrackHash(track models.Track) string {
	sum := md5.Sum([]byte(match.FingerprintOf(track.Title, track.Artist)))
	return hex.EncodeToString(sum[:])
}
