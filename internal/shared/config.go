package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Storage     StorageConfig     `toml:"storage"`
	Matching    MatchingConfig    `toml:"matching"`
	Batch       BatchConfig       `toml:"batch"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
	AuthFile string `toml:"auth_file"`
}

// StorageConfig contains the locations of the durable files owned by the
// core: the match cache database, the operation journal and the no-results
// sink.
type StorageConfig struct {
	CachePath     string `toml:"cache_path"`
	JournalPath   string `toml:"journal_path"`
	NoResultsPath string `toml:"no_results_path"`
}

// MatchingConfig contains the track matching policy knobs.
//
// Weights and threshold are policy choices tuned empirically; they are
// configuration rather than constants baked into the matcher.
type MatchingConfig struct {
	TitleWeight     float64 `toml:"title_weight"`
	ArtistWeight    float64 `toml:"artist_weight"`
	DurationWeight  float64 `toml:"duration_weight"`
	AcceptThreshold float64 `toml:"accept_threshold"`
	DurationPad     int     `toml:"duration_pad"`  // seconds of slack at full duration closeness
	DurationVeto    int     `toml:"duration_veto"` // seconds beyond which a candidate is excluded
}

// BatchConfig contains bulk operation defaults.
type BatchConfig struct {
	Size         int     `toml:"size"`
	DelaySeconds float64 `toml:"delay_seconds"`
}

// SyncConfig contains reconciliation defaults.
type SyncConfig struct {
	Tolerance float64 `toml:"tolerance"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyDefaults()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills unset storage paths from the XDG data directory and
// backstops zero-valued policy knobs.
func (c *Config) applyDefaults() {
	if c.Storage.CachePath == "" {
		c.Storage.CachePath = dataFile("matches.db")
	}
	if c.Storage.JournalPath == "" {
		c.Storage.JournalPath = dataFile("journal.jsonl")
	}
	if c.Storage.NoResultsPath == "" {
		c.Storage.NoResultsPath = dataFile("noresults.txt")
	}
	if c.Matching.TitleWeight == 0 && c.Matching.ArtistWeight == 0 && c.Matching.DurationWeight == 0 {
		c.Matching.TitleWeight = 0.40
		c.Matching.ArtistWeight = 0.40
		c.Matching.DurationWeight = 0.20
	}
	if c.Matching.AcceptThreshold == 0 {
		c.Matching.AcceptThreshold = 0.75
	}
	if c.Matching.DurationPad == 0 {
		c.Matching.DurationPad = 2
	}
	if c.Matching.DurationVeto == 0 {
		c.Matching.DurationVeto = 10
	}
	if c.Batch.Size == 0 {
		c.Batch.Size = 5
	}
	if c.Batch.DelaySeconds == 0 {
		c.Batch.DelaySeconds = 2
	}
	if c.Sync.Tolerance == 0 {
		c.Sync.Tolerance = 0.9
	}
}

func dataFile(name string) string {
	path, err := xdg.DataFile(filepath.Join("plsync", name))
	if err != nil {
		return filepath.Join(".", name)
	}
	return path
}
