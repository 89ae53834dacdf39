package rec

import (
	"strings"
	"time"
)

// Player is one roster entry of a recorded session.
type Player struct {
	Number       int    `json:"number"`
	Name         string `json:"name"`
	Team         int    `json:"team"`
	Civilization string `json:"civilization"`
	Color        int    `json:"color"`
}

// Header carries the metadata extracted from a recording. Fields that are
// local to the recording client (recorder, duration, parser version) are not
// part of the shared match identity.
type Header struct {
	MapID          int               `json:"map_id"`
	MapSeed        int64             `json:"map_seed"`
	MapName        string            `json:"map_name"`
	Version        string            `json:"version"`
	Ruleset        string            `json:"ruleset"`
	Settings       map[string]string `json:"settings"`
	Players        []Player          `json:"players"`
	RecorderNumber int               `json:"recorder_number"`
	RecorderName   string            `json:"recorder_name"`
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"-"`
	DurationMS     int64             `json:"duration_ms"`
	ParserVersion  string            `json:"parser_version"`
}

// normalize trims text fields and reconciles the duration representations.
func (h *Header) normalize() {
	h.MapName = strings.TrimSpace(h.MapName)
	h.Version = strings.TrimSpace(h.Version)
	h.Ruleset = strings.TrimSpace(h.Ruleset)
	h.RecorderName = strings.TrimSpace(h.RecorderName)
	for i := range h.Players {
		h.Players[i].Name = strings.TrimSpace(h.Players[i].Name)
		h.Players[i].Civilization = strings.TrimSpace(h.Players[i].Civilization)
	}
	if h.Duration == 0 && h.DurationMS > 0 {
		h.Duration = time.Duration(h.DurationMS) * time.Millisecond
	}
	h.DurationMS = h.Duration.Milliseconds()
	if !h.StartedAt.IsZero() {
		h.StartedAt = h.StartedAt.UTC()
	}
	if h.RecorderName == "" && h.RecorderNumber > 0 {
		for _, p := range h.Players {
			if p.Number == h.RecorderNumber {
				h.RecorderName = p.Name
				break
			}
		}
	}
}

// Recorder returns the roster entry of the player who produced the file.
func (h *Header) Recorder() (Player, bool) {
	for _, p := range h.Players {
		if p.Number == h.RecorderNumber {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerNames lists roster names in roster order.
func (h *Header) PlayerNames() []string {
	names := make([]string, 0, len(h.Players))
	for _, p := range h.Players {
		names = append(names, p.Name)
	}
	return names
}
