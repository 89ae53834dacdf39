// Package fingerprint derives the match identity shared by every recording of
// the same session.
//
// The fingerprint covers only fields every participant's client records
// identically: map, seed, version, ruleset, settings, roster, and the start
// time floored to a tolerance window. Recorder identity, duration, and file
// names are deliberately absent.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"recbase/internal/rec"
	"recbase/internal/services"
)

// DefaultWindow is the start time tolerance used when none is configured.
const DefaultWindow = 60 * time.Second

const schemaVersion = "v1"

// Key is the fingerprint of one header.
type Key struct {
	// Value is the hex SHA-256 fingerprint for the header's own window.
	Value string
	// Window is the floored start time the fingerprint was computed for.
	Window time.Time
	// Adjacent holds the fingerprints of the previous and next windows, in
	// that order.
	Adjacent []string
}

// Candidates returns Value followed by the adjacent fingerprints.
func (k Key) Candidates() []string {
	out := make([]string, 0, 1+len(k.Adjacent))
	out = append(out, k.Value)
	out = append(out, k.Adjacent...)
	return out
}

// Extract computes the fingerprint of h. A header without map, version,
// roster, or start time returns ErrMetadataIncomplete.
func Extract(h *rec.Header, window time.Duration) (Key, error) {
	if err := checkComplete(h); err != nil {
		return Key{}, err
	}
	if window <= 0 {
		window = DefaultWindow
	}

	base := canonicalBase(h)
	start := h.StartedAt.UTC().Truncate(window)
	key := Key{
		Value:  digest(base, start),
		Window: start,
		Adjacent: []string{
			digest(base, start.Add(-window)),
			digest(base, start.Add(window)),
		},
	}
	return key, nil
}

func checkComplete(h *rec.Header) error {
	var missing []string
	if h == nil {
		return services.Wrap(services.ErrMetadataIncomplete, services.StageFingerprint, "extract", "no header", nil)
	}
	if h.MapID == 0 && h.MapSeed == 0 {
		missing = append(missing, "map")
	}
	if strings.TrimSpace(h.Version) == "" {
		missing = append(missing, "version")
	}
	if len(h.Players) == 0 {
		missing = append(missing, "players")
	}
	if h.StartedAt.IsZero() {
		missing = append(missing, "start time")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrMetadataIncomplete, services.StageFingerprint, "extract", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// NormalizeName applies NFKC normalization and Unicode case folding so names
// written by different client encodings compare equal.
func NormalizeName(name string) string {
	name = norm.NFKC.String(strings.TrimSpace(name))
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

func canonicalBase(h *rec.Header) string {
	var b strings.Builder
	b.WriteString(schemaVersion)
	b.WriteString("\nmap=")
	b.WriteString(strconv.Itoa(h.MapID))
	b.WriteString("\nseed=")
	b.WriteString(strconv.FormatInt(h.MapSeed, 10))
	b.WriteString("\nversion=")
	b.WriteString(strings.TrimSpace(h.Version))
	b.WriteString("\nruleset=")
	b.WriteString(strings.ToLower(strings.TrimSpace(h.Ruleset)))

	keys := make([]string, 0, len(h.Settings))
	for k := range h.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\nsetting.")
		b.WriteString(strings.ToLower(strings.TrimSpace(k)))
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(h.Settings[k]))
	}

	roster := make([]string, 0, len(h.Players))
	for _, p := range h.Players {
		roster = append(roster, NormalizeName(p.Name)+"|"+strconv.Itoa(p.Team)+"|"+NormalizeName(p.Civilization))
	}
	sort.Strings(roster)
	for _, token := range roster {
		b.WriteString("\nplayer=")
		b.WriteString(token)
	}
	return b.String()
}

func digest(base string, start time.Time) string {
	sum := sha256.Sum256([]byte(base + "\nstart=" + strconv.FormatInt(start.Unix(), 10)))
	return hex.EncodeToString(sum[:])
}
