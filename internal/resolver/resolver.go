// Package resolver decides whether an incoming recording is a resubmission, a
// new perspective on a known match, or a new match, and commits the result.
//
// Every decision runs inside one store write transaction: lookup by content
// hash, lookup by fingerprint (optionally probing the neighbouring start time
// windows), then either append the file to the match and reclassify all of its
// members, or create the match with its roster and first file. A concurrent
// creator winning the fingerprint insert surfaces as
// services.ErrFingerprintRace; Resolve re-runs exactly once and then merges.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recbase/internal/catalog"
	"recbase/internal/completeness"
	"recbase/internal/fingerprint"
	"recbase/internal/logging"
	"recbase/internal/rec"
	"recbase/internal/services"
)

// Store is the transactional surface the resolver needs.
type Store interface {
	WithTx(ctx context.Context, fn func(catalog.Tx) error) error
}

// Outcome classifies what Resolve did with a file.
type Outcome int

const (
	DuplicateFile Outcome = iota + 1
	MergedPerspective
	NewMatch
)

func (o Outcome) String() string {
	switch o {
	case DuplicateFile:
		return "DuplicateFile"
	case MergedPerspective:
		return "MergedPerspective"
	case NewMatch:
		return "NewMatch"
	default:
		return "Unknown"
	}
}

// Incoming is a parsed, hashed, and stored recording awaiting resolution.
type Incoming struct {
	Hash             string
	Key              fingerprint.Key
	Header           *rec.Header
	BlobKey          string
	OriginalFilename string
	Size             int64
	StoredSize       int64
	Source           string
	Reference        string
	HeaderJSON       string
	PlatformID       string
	PlatformMatchID  string
}

// Result reports the outcome of Resolve.
type Result struct {
	Outcome    Outcome
	FileID     int64
	MatchID    int64
	Incomplete bool
	Canonical  time.Duration
}

// Resolver applies match identity rules against a Store.
type Resolver struct {
	store         Store
	ratio         float64
	probeAdjacent bool
	logger        *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCompletenessRatio sets the incomplete threshold.
func WithCompletenessRatio(ratio float64) Option {
	return func(r *Resolver) {
		if ratio > 0 && ratio <= 1 {
			r.ratio = ratio
		}
	}
}

// WithAdjacentWindows toggles probing neighbouring start time windows.
func WithAdjacentWindows(enabled bool) Option {
	return func(r *Resolver) {
		r.probeAdjacent = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Resolver.
func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:         store,
		ratio:         completeness.DefaultRatio,
		probeAdjacent: true,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "resolver")
	return r
}

// Resolve commits in and reports how it was classified.
func (r *Resolver) Resolve(ctx context.Context, in Incoming) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	ctx = services.WithStage(ctx, services.StageResolve)
	logger := logging.WithContext(ctx, r.logger)

	res, err := r.attempt(ctx, in)
	if errors.Is(err, services.ErrFingerprintRace) {
		logger.Debug("fingerprint claimed concurrently; retrying as merge", logging.String("fingerprint", in.Key.Value))
		res, err = r.attempt(ctx, in)
	}
	if errors.Is(err, catalog.ErrDuplicateFile) {
		return r.duplicateAfterRace(ctx, in)
	}
	if err != nil {
		return Result{}, classifyError(err)
	}

	logger.Debug("file resolved",
		logging.Outcome(res.Outcome),
		logging.Int64(logging.FieldFileID, res.FileID),
		logging.Int64(logging.FieldMatchID, res.MatchID),
	)
	return res, nil
}

func validate(in Incoming) error {
	switch {
	case in.Hash == "":
		return services.Wrap(services.ErrValidation, services.StageResolve, "validate", "missing content hash", nil)
	case in.Key.Value == "":
		return services.Wrap(services.ErrValidation, services.StageResolve, "validate", "missing fingerprint", nil)
	case in.Header == nil:
		return services.Wrap(services.ErrValidation, services.StageResolve, "validate", "missing header", nil)
	}
	return nil
}

func classifyError(err error) error {
	for _, marker := range []error{
		services.ErrStorageUnavailable,
		services.ErrFingerprintRace,
		services.ErrNotFound,
		services.ErrValidation,
	} {
		if errors.Is(err, marker) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "resolve", "", err)
}

func (r *Resolver) attempt(ctx context.Context, in Incoming) (Result, error) {
	var res Result
	err := r.store.WithTx(ctx, func(tx catalog.Tx) error {
		res = Result{}
		existing, err := tx.FileByHash(ctx, in.Hash)
		if err != nil {
			return err
		}
		if existing != nil {
			res = Result{
				Outcome:    DuplicateFile,
				FileID:     existing.ID,
				MatchID:    existing.MatchID,
				Incomplete: existing.Incomplete,
			}
			return nil
		}

		match, err := r.findMatch(ctx, tx, in.Key)
		if err != nil {
			return err
		}
		if match != nil {
			res, err = r.merge(ctx, tx, match, in)
			return err
		}
		res, err = r.create(ctx, tx, in)
		return err
	})
	return res, err
}

func (r *Resolver) findMatch(ctx context.Context, tx catalog.Tx, key fingerprint.Key) (*catalog.Match, error) {
	candidates := []string{key.Value}
	if r.probeAdjacent {
		candidates = key.Candidates()
	}
	for _, fp := range candidates {
		m, err := tx.MatchByFingerprint(ctx, fp)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	return nil, nil
}

func (r *Resolver) merge(ctx context.Context, tx catalog.Tx, match *catalog.Match, in Incoming) (Result, error) {
	file := newFile(in, match.ID, match.Fingerprint)
	if _, err := tx.InsertFile(ctx, file); err != nil {
		return Result{}, err
	}
	verdict, err := reclassify(ctx, tx, match, r.ratio)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Outcome:    MergedPerspective,
		FileID:     file.ID,
		MatchID:    match.ID,
		Incomplete: verdict.Incomplete[file.ID],
		Canonical:  verdict.Canonical,
	}, nil
}

func (r *Resolver) create(ctx context.Context, tx catalog.Tx, in Incoming) (Result, error) {
	h := in.Header
	match := &catalog.Match{
		Fingerprint:     in.Key.Value,
		MapID:           h.MapID,
		MapSeed:         h.MapSeed,
		MapName:         h.MapName,
		Version:         h.Version,
		Ruleset:         h.Ruleset,
		PlayedAt:        h.StartedAt,
		Duration:        h.Duration,
		PlatformID:      in.PlatformID,
		PlatformMatchID: in.PlatformMatchID,
	}
	if _, err := tx.InsertMatch(ctx, match); err != nil {
		return Result{}, err
	}

	players := make([]catalog.Player, 0, len(h.Players))
	for _, p := range h.Players {
		players = append(players, catalog.Player{
			MatchID:      match.ID,
			Number:       p.Number,
			Name:         p.Name,
			Team:         p.Team,
			Civilization: p.Civilization,
			Color:        p.Color,
		})
	}
	if err := tx.InsertPlayers(ctx, match.ID, players); err != nil {
		return Result{}, err
	}

	file := newFile(in, match.ID, match.Fingerprint)
	if _, err := tx.InsertFile(ctx, file); err != nil {
		return Result{}, err
	}
	return Result{
		Outcome:   NewMatch,
		FileID:    file.ID,
		MatchID:   match.ID,
		Canonical: match.Duration,
	}, nil
}

// duplicateAfterRace handles a concurrent commit of the same bytes.
func (r *Resolver) duplicateAfterRace(ctx context.Context, in Incoming) (Result, error) {
	var res Result
	err := r.store.WithTx(ctx, func(tx catalog.Tx) error {
		existing, err := tx.FileByHash(ctx, in.Hash)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("file %s vanished after duplicate insert", in.Hash)
		}
		res = Result{Outcome: DuplicateFile, FileID: existing.ID, MatchID: existing.MatchID, Incomplete: existing.Incomplete}
		return nil
	})
	if err != nil {
		return Result{}, classifyError(err)
	}
	return res, nil
}

func newFile(in Incoming, matchID int64, matchFingerprint string) *catalog.File {
	h := in.Header
	return &catalog.File{
		MatchID:          matchID,
		Hash:             in.Hash,
		Fingerprint:      matchFingerprint,
		BlobKey:          in.BlobKey,
		OriginalFilename: in.OriginalFilename,
		Size:             in.Size,
		StoredSize:       in.StoredSize,
		RecorderNumber:   h.RecorderNumber,
		RecorderName:     h.RecorderName,
		Duration:         h.Duration,
		Source:           in.Source,
		Reference:        in.Reference,
		ParserVersion:    h.ParserVersion,
		HeaderJSON:       in.HeaderJSON,
	}
}

// reclassify recomputes canonical duration and per-file flags for a match
// and persists whatever changed.
func reclassify(ctx context.Context, tx catalog.Tx, match *catalog.Match, ratio float64) (completeness.Verdict, error) {
	files, err := tx.MatchFiles(ctx, match.ID)
	if err != nil {
		return completeness.Verdict{}, err
	}
	members := make([]completeness.Member, 0, len(files))
	current := make(map[int64]bool, len(files))
	for _, f := range files {
		members = append(members, completeness.Member{FileID: f.ID, Duration: f.Duration})
		current[f.ID] = f.Incomplete
	}
	verdict := completeness.Classify(members, ratio)
	if verdict.Canonical != match.Duration {
		if err := tx.UpdateMatchDuration(ctx, match.ID, verdict.Canonical); err != nil {
			return completeness.Verdict{}, err
		}
		match.Duration = verdict.Canonical
	}
	for _, id := range verdict.Changed(current) {
		if err := tx.SetFileIncomplete(ctx, id, verdict.Incomplete[id]); err != nil {
			return completeness.Verdict{}, err
		}
	}
	return verdict, nil
}
