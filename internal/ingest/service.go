package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"recbase/internal/blob"
	"recbase/internal/catalog"
	"recbase/internal/config"
	"recbase/internal/contenthash"
	"recbase/internal/fingerprint"
	"recbase/internal/logging"
	"recbase/internal/platform"
	"recbase/internal/rec"
	"recbase/internal/resolver"
	"recbase/internal/series"
	"recbase/internal/services"
)

// Source labels recorded on files.
const (
	SourceCLI      = "cli"
	SourceCSV      = "csv"
	SourceZip      = "zip"
	SourcePlatform = "platform"
	SourceArchive  = "archive"
)

// Request describes one recording to ingest.
type Request struct {
	Name       string
	Data       []byte
	Source     string
	Reference  string
	Series     string
	Tournament string
	Tags       []string

	PlatformID      string
	PlatformMatchID string
	// PlayedAt is used when neither the header nor the filename carry a
	// start time.
	PlayedAt time.Time
	// Profiles maps player names to already known profile ids.
	Profiles map[string]string
}

// Report is the result of one ingestion.
type Report struct {
	RequestID  string
	Name       string
	Hash       string
	Outcome    resolver.Outcome
	FileID     int64
	MatchID    int64
	SeriesID   int64
	Incomplete bool
	Err        error
}

// OK reports whether the file is in the catalog.
func (r Report) OK() bool { return r.Err == nil && r.FileID != 0 }

// Service runs the ingestion pipeline.
type Service struct {
	store    *catalog.Store
	resolver *resolver.Resolver
	series   *series.Manager
	parser   rec.Parser
	blobs    blob.Store
	codec    blob.Codec
	lookup   platform.Lookup
	matches  MatchSource
	window   time.Duration
	maxBytes int64
	workers  int
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLookup enables profile resolution for new matches.
func WithLookup(lookup platform.Lookup) Option {
	return func(s *Service) { s.lookup = lookup }
}

// WithMatchSource enables match-reference ingestion.
func WithMatchSource(src MatchSource) Option {
	return func(s *Service) { s.matches = src }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the pipeline from configuration and its collaborators.
func NewService(cfg *config.Config, store *catalog.Store, parser rec.Parser, blobs blob.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		parser:   parser,
		blobs:    blobs,
		codec:    blob.Codec{Compress: cfg.Blob.Compress},
		window:   cfg.StartTimeWindow(),
		maxBytes: int64(cfg.Ingest.MaxFileMiB) << 20,
		workers:  cfg.Ingest.Workers,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "ingest")
	s.resolver = resolver.New(store,
		resolver.WithCompletenessRatio(cfg.Matching.CompletenessRatio),
		resolver.WithAdjacentWindows(cfg.Matching.ProbeAdjacentWindows),
		resolver.WithLogger(s.logger),
	)
	s.series = series.NewManager(store, s.logger)
	if s.workers <= 0 {
		s.workers = 1
	}
	return s
}

// Resolver exposes the resolver for removal commands.
func (s *Service) Resolver() *resolver.Resolver { return s.resolver }

// Series exposes the series/tag manager.
func (s *Service) Series() *series.Manager { return s.series }

// Ingest runs one recording through the pipeline. The returned error is also
// recorded on the report.
func (s *Service) Ingest(ctx context.Context, req Request) (Report, error) {
	report := Report{RequestID: uuid.NewString(), Name: req.Name}
	ctx = services.WithRequestID(ctx, report.RequestID)
	ctx = services.WithFileName(ctx, req.Name)
	logger := logging.WithContext(ctx, s.logger)

	err := s.ingest(ctx, req, &report)
	if err != nil {
		report.Err = err
		logger.Error("ingest failed",
			logging.String(logging.FieldOutcome, services.OutcomeName(err)),
			logging.Error(err))
		return report, err
	}
	logger.Info("file ingested",
		logging.Outcome(report.Outcome),
		logging.Hash(report.Hash),
		logging.Int64(logging.FieldFileID, report.FileID),
		logging.Int64(logging.FieldMatchID, report.MatchID),
		logging.Bool("incomplete", report.Incomplete))
	return report, nil
}

func (s *Service) ingest(ctx context.Context, req Request, report *Report) error {
	if len(req.Data) == 0 {
		return services.Wrap(services.ErrValidation, services.StageHash, "read", "file is empty", nil)
	}
	if s.maxBytes > 0 && int64(len(req.Data)) > s.maxBytes {
		return services.Wrap(services.ErrValidation, services.StageHash, "read",
			fmt.Sprintf("file exceeds %d bytes", s.maxBytes), nil)
	}
	if req.Source == "" {
		req.Source = SourceCLI
	}

	report.Hash = contenthash.Sum(req.Data)
	existing, err := s.store.FileByHash(ctx, report.Hash)
	if err != nil {
		return err
	}
	if existing != nil {
		report.Outcome = resolver.DuplicateFile
		report.FileID = existing.ID
		report.MatchID = existing.MatchID
		report.Incomplete = existing.Incomplete
		return s.applyLabels(ctx, req, report)
	}

	header, err := s.parser.Parse(services.WithStage(ctx, services.StageParse), req.Name, req.Data)
	if err != nil {
		return err
	}
	fillStart(header, req)

	key, err := fingerprint.Extract(header, s.window)
	if err != nil {
		return err
	}

	stored, err := s.codec.Encode(req.Data)
	if err != nil {
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "encode", "", err)
	}
	blobKey := blob.Key(report.Hash)
	if err := s.blobs.Put(ctx, blobKey, stored); err != nil {
		return err
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return services.Wrap(services.ErrValidation, services.StagePersist, "encode header", "", err)
	}

	res, err := s.resolver.Resolve(ctx, resolver.Incoming{
		Hash:             report.Hash,
		Key:              key,
		Header:           header,
		BlobKey:          blobKey,
		OriginalFilename: req.Name,
		Size:             int64(len(req.Data)),
		StoredSize:       int64(len(stored)),
		Source:           req.Source,
		Reference:        req.Reference,
		HeaderJSON:       string(headerJSON),
		PlatformID:       req.PlatformID,
		PlatformMatchID:  req.PlatformMatchID,
	})
	if err != nil {
		return err
	}
	report.Outcome = res.Outcome
	report.FileID = res.FileID
	report.MatchID = res.MatchID
	report.Incomplete = res.Incomplete

	if res.Outcome == resolver.NewMatch {
		s.resolveProfiles(ctx, res.MatchID, header, req.Profiles)
	}
	return s.applyLabels(ctx, req, report)
}

// fillStart falls back to the platform timestamp, then to the filename.
func fillStart(h *rec.Header, req Request) {
	if !h.StartedAt.IsZero() {
		return
	}
	if !req.PlayedAt.IsZero() {
		h.StartedAt = req.PlayedAt.UTC()
		return
	}
	if ts, _, ok := rec.ParseFilenameTime(req.Name); ok {
		h.StartedAt = ts
	}
}

// resolveProfiles attaches profile ids to the roster. Failures are logged
// and ignored.
func (s *Service) resolveProfiles(ctx context.Context, matchID int64, h *rec.Header, known map[string]string) {
	ctx = services.WithStage(ctx, services.StageLookup)
	logger := logging.WithContext(ctx, s.logger)
	for _, p := range h.Players {
		profileID := strings.TrimSpace(known[p.Name])
		if profileID == "" && s.lookup != nil {
			id, err := s.lookup.ResolveProfile(ctx, p.Name)
			switch {
			case errors.Is(err, services.ErrNotFound):
				logger.Debug("player has no platform profile", logging.String("player", p.Name))
				continue
			case err != nil:
				logging.WarnWithContext(logger, "profile lookup failed", "profile_lookup_failed",
					logging.String("player", p.Name),
					logging.Int64(logging.FieldMatchID, matchID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "match stored without profile ids"))
				continue
			}
			profileID = id
		}
		if profileID == "" {
			continue
		}
		if err := s.store.SetPlayerProfile(ctx, matchID, p.Number, profileID); err != nil {
			logging.WarnWithContext(logger, "profile update failed", "profile_update_failed",
				logging.String("player", p.Name),
				logging.Int64(logging.FieldMatchID, matchID),
				logging.Error(err))
		}
	}
}

func (s *Service) applyLabels(ctx context.Context, req Request, report *Report) error {
	if report.MatchID == 0 {
		return nil
	}
	if name := strings.TrimSpace(req.Series); name != "" {
		created, err := s.series.CreateSeries(ctx, name, req.Tournament)
		if err != nil {
			return err
		}
		if err := s.series.AssignSeries(ctx, report.MatchID, created.ID); err != nil {
			return err
		}
		report.SeriesID = created.ID
	}
	if len(req.Tags) > 0 {
		return s.series.AddTags(ctx, report.MatchID, req.Tags)
	}
	return nil
}

// Retrieve returns the original bytes of a stored file.
func (s *Service) Retrieve(ctx context.Context, fileID int64) (*catalog.File, []byte, error) {
	file, err := s.store.File(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	return s.load(ctx, file)
}

// RetrieveByHash is Retrieve keyed by content hash.
func (s *Service) RetrieveByHash(ctx context.Context, hash string) (*catalog.File, []byte, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !contenthash.Valid(hash) {
		return nil, nil, services.Wrap(services.ErrValidation, services.StageHash, "lookup",
			fmt.Sprintf("%q is not a content hash", hash), nil)
	}
	file, err := s.store.FileByHash(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, services.StageLookup, "file", hash, nil)
	}
	return s.load(ctx, file)
}

func (s *Service) load(ctx context.Context, file *catalog.File) (*catalog.File, []byte, error) {
	stored, err := s.blobs.Get(ctx, file.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	raw, err := s.codec.Decode(stored)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "decode", file.BlobKey, err)
	}
	if got := contenthash.Sum(raw); got != file.Hash {
		return nil, nil, services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "verify",
			fmt.Sprintf("payload hash %s does not match %s", got, file.Hash), nil)
	}
	return file, raw, nil
}

// RemoveFile deletes a file and any blob it no longer needs.
func (s *Service) RemoveFile(ctx context.Context, fileID int64) (catalog.Removal, error) {
	removal, err := s.resolver.RemoveFile(ctx, fileID)
	if err != nil {
		return removal, err
	}
	s.purge(ctx, removal.BlobKeys)
	return removal, nil
}

// RemoveMatch deletes a match with all of its files.
func (s *Service) RemoveMatch(ctx context.Context, matchID int64) (catalog.Removal, error) {
	removal, err := s.store.RemoveMatch(ctx, matchID)
	if err != nil {
		return removal, err
	}
	s.purge(ctx, removal.BlobKeys)
	return removal, nil
}

// Reset drops and recreates the catalog and deletes every payload it
// referenced.
func (s *Service) Reset(ctx context.Context) error {
	keys, err := s.store.Reset(ctx)
	if err != nil {
		return err
	}
	s.purge(ctx, keys)
	return nil
}

// purge deletes payloads after their rows are gone. A leftover payload is
// harmless, so failures only warn.
func (s *Service) purge(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			logging.WarnWithContext(s.logger, "blob delete failed", "blob_delete_failed",
				logging.String("blob_key", key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "payload left in blob store"))
		}
	}
}
