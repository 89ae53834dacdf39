package catalog

import "time"

// Match is one canonical game session.
type Match struct {
	ID              int64
	Fingerprint     string
	SeriesID        int64
	MapID           int
	MapSeed         int64
	MapName         string
	Version         string
	Ruleset         string
	PlayedAt        time.Time
	Duration        time.Duration
	PlatformID      string
	PlatformMatchID string
	CreatedAt       time.Time
}

// File is one submitted recording of a match.
type File struct {
	ID               int64
	MatchID          int64
	Hash             string
	Fingerprint      string
	BlobKey          string
	OriginalFilename string
	Size             int64
	StoredSize       int64
	RecorderNumber   int
	RecorderName     string
	Duration         time.Duration
	Incomplete       bool
	Source           string
	Reference        string
	ParserVersion    string
	HeaderJSON       string
	AddedAt          time.Time
}

// Player is a roster entry of a match.
type Player struct {
	MatchID      int64
	Number       int
	Name         string
	Team         int
	Civilization string
	Color        int
	ProfileID    string
}

// Series groups matches of one tournament set.
type Series struct {
	ID         int64
	Name       string
	Slug       string
	Tournament string
	CreatedAt  time.Time
	MatchCount int
}

// MatchDetail bundles a match with everything attached to it.
type MatchDetail struct {
	Match   Match
	Players []Player
	Files   []File
	Tags    []string
	Series  *Series
}

// Summary aggregates catalog-wide counters.
type Summary struct {
	Matches         int
	Files           int
	IncompleteFiles int
	Series          int
	Players         int
	Tags            int
	RawBytes        int64
	StoredBytes     int64
}

// Removal reports what a delete touched. BlobKeys lists payloads no longer
// referenced by any file.
type Removal struct {
	MatchID      int64
	MatchRemoved bool
	FilesRemoved int
	BlobKeys     []string
}

// Health reports store connectivity and schema state.
type Health struct {
	Driver        string
	Location      string
	SchemaVersion uint
	Dirty         bool
	Matches       int
	Files         int
}
