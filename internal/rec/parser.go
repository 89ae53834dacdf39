package rec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"recbase/internal/services"
)

// Parser extracts header metadata from raw recording bytes.
type Parser interface {
	Parse(ctx context.Context, name string, data []byte) (*Header, error)
}

var commandContext = exec.CommandContext

// CommandParser runs an external header extraction binary. The binary receives
// the file name as its last argument, the raw bytes on stdin, and must print a
// JSON Header on stdout.
type CommandParser struct {
	binary  string
	args    []string
	timeout time.Duration
}

// Option configures a CommandParser.
type Option func(*CommandParser)

// WithArgs prepends fixed arguments before the file name.
func WithArgs(args ...string) Option {
	return func(p *CommandParser) {
		p.args = append([]string(nil), args...)
	}
}

// WithTimeout bounds a single parse invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(p *CommandParser) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// NewCommandParser constructs a parser for the given binary.
func NewCommandParser(binary string, opts ...Option) *CommandParser {
	p := &CommandParser{binary: strings.TrimSpace(binary), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Binary reports the configured executable.
func (p *CommandParser) Binary() string {
	return p.binary
}

// Parse executes the binary and decodes its output. A failing or missing
// binary is an ExternalTool error; unreadable output is MetadataIncomplete.
func (p *CommandParser) Parse(ctx context.Context, name string, data []byte) (*Header, error) {
	if p.binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, services.StageParse, "command", "parser command not configured", nil)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrMetadataIncomplete, services.StageParse, "read", "empty recording", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string(nil), p.args...), name)
	cmd := commandContext(ctx, p.binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s", p.timeout)
		}
		return nil, services.Wrap(services.ErrExternalTool, services.StageParse, p.binary, detail, err)
	}

	header, err := DecodeHeader(stdout.Bytes())
	if err != nil {
		return nil, services.Wrap(services.ErrMetadataIncomplete, services.StageParse, "decode", name, err)
	}
	if header.StartedAt.IsZero() {
		if ts, version, ok := ParseFilenameTime(name); ok {
			header.StartedAt = ts
			if header.Version == "" {
				header.Version = version
			}
		}
	}
	return header, nil
}

// DecodeHeader decodes the JSON header format printed by parser binaries.
func DecodeHeader(payload []byte) (*Header, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, errors.New("parser produced no output")
	}
	var wire struct {
		Header
		StartedAt string `json:"started_at"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("decode header json: %w", err)
	}
	header := wire.Header
	if raw := strings.TrimSpace(wire.StartedAt); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("decode started_at: %w", err)
		}
		header.StartedAt = ts
	}
	header.normalize()
	return &header, nil
}
