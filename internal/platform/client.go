package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"recbase/internal/config"
	"recbase/internal/logging"
	"recbase/internal/services"
)

// Profile is a player account on the platform.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchPlayer is one roster entry of a platform match. URL is empty when the
// player did not upload a recording.
type MatchPlayer struct {
	ProfileID string `json:"id"`
	Name      string `json:"name"`
	Number    int    `json:"number"`
	URL       string `json:"url"`
}

// Match is a platform match reference.
type Match struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Ladder    string        `json:"ladder"`
	Players   []MatchPlayer `json:"players"`
}

// Recordings returns players that uploaded a recording. With singlePOV only
// the first such player is returned.
func (m *Match) Recordings(singlePOV bool) []MatchPlayer {
	out := make([]MatchPlayer, 0, len(m.Players))
	for _, p := range m.Players {
		if strings.TrimSpace(p.URL) == "" {
			continue
		}
		out = append(out, p)
		if singlePOV {
			break
		}
	}
	return out
}

// Lookup resolves player names to profile ids.
type Lookup interface {
	ResolveProfile(ctx context.Context, name string) (string, error)
}

// Client provides access to the platform API.
type Client struct {
	name        string
	baseURL     string
	apiKey      string
	username    string
	password    string
	maxDownload int64
	httpClient  *http.Client
	cache       *ProfileCache
	logger      *slog.Logger
}

var _ Lookup = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache attaches a profile cache.
func WithCache(cache *ProfileCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithCredentials sets basic-auth credentials for download endpoints.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = strings.TrimSpace(username)
		c.password = password
	}
}

// WithMaxDownload caps the size of a downloaded recording.
func WithMaxDownload(bytes int64) Option {
	return func(c *Client) {
		if bytes > 0 {
			c.maxDownload = bytes
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a platform client.
func New(name, baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, services.StageLookup, "init", "platform base url required", nil)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageLookup, "init", "parse platform base url", err)
	}
	c := &Client{
		name:        strings.TrimSpace(name),
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      strings.TrimSpace(apiKey),
		maxDownload: 64 << 20,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "platform")
	return c, nil
}

// NewFromConfig builds a client from the [platform] section. It returns nil
// when the platform is disabled.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil || !cfg.Platform.Enabled {
		return nil, nil
	}
	return New(cfg.Platform.Name, cfg.Platform.BaseURL, cfg.Platform.APIKey,
		WithHTTPClient(&http.Client{Timeout: cfg.PlatformTimeout()}),
		WithCredentials(cfg.Platform.Username, cfg.Platform.Password),
		WithMaxDownload(int64(cfg.Platform.MaxDownloadMiB)<<20),
		WithCache(NewProfileCache(cfg.Platform.CachePath, logger)),
		WithLogger(logger),
	)
}

// Name reports the platform identifier stored on matches.
func (c *Client) Name() string { return c.name }

// ResolveProfile returns the profile id for a player name. Unknown players
// yield ErrNotFound; both hits and misses are cached.
func (c *Client) ResolveProfile(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, services.StageLookup, "profile", "player name is empty", nil)
	}
	if entry, ok := c.cache.Lookup(name); ok {
		if entry.ProfileID == "" {
			return "", services.Wrap(services.ErrNotFound, services.StageLookup, "profile", name, nil)
		}
		return entry.ProfileID, nil
	}

	params := url.Values{}
	params.Set("name", name)
	var profile Profile
	err := c.getJSON(ctx, "/api/users/lookup", params, &profile)
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.remember(name, "")
		return "", err
	case err != nil:
		return "", err
	case strings.TrimSpace(profile.ID) == "":
		return "", services.Wrap(services.ErrExternalTool, services.StageLookup, "profile", "response missing id", nil)
	}
	c.remember(name, profile.ID)
	return profile.ID, nil
}

func (c *Client) remember(name, profileID string) {
	if err := c.cache.Store(ProfileEntry{Name: name, ProfileID: profileID, CachedAt: time.Now().UTC()}); err != nil {
		logging.WarnWithContext(c.logger, "profile cache write failed", "profile_cache_write_failed",
			logging.String("player", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check platform.cache_path permissions"))
	}
}

// Match fetches a match reference. ref is a match id or a match URL whose
// last path segment is the id.
func (c *Client) Match(ctx context.Context, ref string) (*Match, error) {
	id := MatchID(ref)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, services.StageLookup, "match", "match id is empty", nil)
	}
	var match Match
	if err := c.getJSON(ctx, "/api/matches/"+url.PathEscape(id), nil, &match); err != nil {
		return nil, err
	}
	if match.ID == "" {
		match.ID = id
	}
	return &match, nil
}

// MatchID extracts the id from a match reference.
func MatchID(ref string) string {
	ref = strings.TrimRight(strings.TrimSpace(ref), "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return ref
}

// Download fetches a recording. It returns the server-provided filename, or
// the last URL path segment when none is sent.
func (c *Client) Download(ctx context.Context, rawURL string) (string, []byte, error) {
	target, err := c.resolve(rawURL)
	if err != nil {
		return "", nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, services.StageLookup, "download", "build request", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, services.StageLookup, "download", target.String(), err)
	}
	defer resp.Body.Close()
	if err := statusError(resp, "download"); err != nil {
		return "", nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, services.StageLookup, "download", "read body", err)
	}
	if int64(len(data)) > c.maxDownload {
		return "", nil, services.Wrap(services.ErrValidation, services.StageLookup, "download",
			fmt.Sprintf("recording exceeds %d bytes", c.maxDownload), nil)
	}
	return downloadName(resp, target), data, nil
}

func downloadName(resp *http.Response, target *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(strings.TrimSpace(params["filename"])); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	return path.Base(target.Path)
}

func (c *Client) resolve(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, services.Wrap(services.ErrValidation, services.StageLookup, "download", "url is empty", nil)
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageLookup, "download", "parse base url", err)
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, services.StageLookup, "download", "parse url", err)
	}
	return base.ResolveReference(ref), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, services.StageLookup, endpoint, "parse url", err)
	}
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, services.StageLookup, endpoint, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, services.StageLookup, endpoint, fmt.Sprintf("request failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()
	c.logger.Debug("platform request",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency))

	if err := statusError(resp, endpoint); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, services.StageLookup, endpoint, "decode response", err)
	}
	return nil
}

func statusError(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, services.StageLookup, operation, resp.Request.URL.Path, nil)
	default:
		return services.Wrap(services.ErrExternalTool, services.StageLookup, operation, fmt.Sprintf("platform returned %d", resp.StatusCode), nil)
	}
}
