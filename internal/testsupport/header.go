package testsupport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"recbase/internal/rec"
	"recbase/internal/services"
)

// HeaderOption customizes a generated header.
type HeaderOption func(*rec.Header)

// NewHeader returns a complete two-player header. Headers built with the same
// options share a fingerprint.
func NewHeader(opts ...HeaderOption) *rec.Header {
	h := &rec.Header{
		MapID:    9,
		MapSeed:  424242,
		MapName:  "Arabia",
		Version:  "UP1.5",
		Ruleset:  "RM",
		Settings: map[string]string{"pop": "200", "speed": "normal"},
		Players: []rec.Player{
			{Number: 1, Name: "Iketh", Team: 1, Civilization: "Mongols", Color: 1},
			{Number: 2, Name: "Woogy", Team: 2, Civilization: "Aztecs", Color: 2},
		},
		RecorderNumber: 1,
		RecorderName:   "Iketh",
		StartedAt:      time.Date(2020, 2, 13, 21, 35, 5, 0, time.UTC),
		Duration:       time.Hour,
		ParserVersion:  "test",
	}
	for _, opt := range opts {
		opt(h)
	}
	h.DurationMS = h.Duration.Milliseconds()
	return h
}

// WithDuration sets the recorded duration.
func WithDuration(d time.Duration) HeaderOption {
	return func(h *rec.Header) { h.Duration = d }
}

// WithRecorder sets the recording player.
func WithRecorder(number int, name string) HeaderOption {
	return func(h *rec.Header) {
		h.RecorderNumber = number
		h.RecorderName = name
	}
}

// WithStart sets the declared start time.
func WithStart(ts time.Time) HeaderOption {
	return func(h *rec.Header) { h.StartedAt = ts }
}

// WithPlayers replaces the roster.
func WithPlayers(players ...rec.Player) HeaderOption {
	return func(h *rec.Header) { h.Players = players }
}

// WithMap sets the map id and seed.
func WithMap(id int, seed int64) HeaderOption {
	return func(h *rec.Header) {
		h.MapID = id
		h.MapSeed = seed
	}
}

// FakeParser returns registered headers keyed by the raw file contents.
type FakeParser struct {
	mu      sync.Mutex
	headers map[string]*rec.Header
	calls   int
}

// NewFakeParser constructs an empty FakeParser.
func NewFakeParser() *FakeParser {
	return &FakeParser{headers: make(map[string]*rec.Header)}
}

// Register associates data with header.
func (p *FakeParser) Register(data []byte, header *rec.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headers[string(data)] = header
}

// Calls reports how many times Parse ran.
func (p *FakeParser) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Parse implements rec.Parser.
func (p *FakeParser) Parse(_ context.Context, name string, data []byte) (*rec.Header, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	h, ok := p.headers[string(data)]
	if !ok {
		return nil, services.Wrap(services.ErrMetadataIncomplete, services.StageParse, "decode", fmt.Sprintf("no header registered for %s", name), nil)
	}
	clone := *h
	clone.Players = append([]rec.Player(nil), h.Players...)
	return &clone, nil
}
