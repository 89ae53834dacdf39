// Package series applies manual grouping to matches: tournament series and
// free-form tags. Nothing here infers series membership automatically.
package series

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"

	"recbase/internal/catalog"
	"recbase/internal/logging"
	"recbase/internal/services"
)

// Store is the persistence surface the manager needs.
type Store interface {
	CreateSeries(ctx context.Context, name, slug, tournament string) (*catalog.Series, bool, error)
	SeriesByID(ctx context.Context, id int64) (*catalog.Series, error)
	ListSeries(ctx context.Context) ([]catalog.Series, error)
	RemoveSeries(ctx context.Context, id int64) (int, error)
	SetMatchSeries(ctx context.Context, matchID, seriesID int64) error
	AddTag(ctx context.Context, matchID int64, label string) (bool, error)
	RemoveTag(ctx context.Context, matchID int64, label string) (bool, error)
}

// Manager implements series and tag commands.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager constructs a Manager.
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logging.NewComponentLogger(logger, "series")}
}

// Slug returns the stable identifier for a series name within a tournament.
func Slug(name, tournament string) string {
	if strings.TrimSpace(tournament) == "" {
		return slug.Make(name)
	}
	return slug.Make(tournament + " " + name)
}

// CreateSeries finds or creates a series by slug. Names that differ only in
// case or spacing share a series; a different name whose slug collides with
// an existing series is rejected.
func (m *Manager) CreateSeries(ctx context.Context, name, tournament string) (*catalog.Series, error) {
	name = strings.TrimSpace(name)
	tournament = strings.TrimSpace(tournament)
	key := Slug(name, tournament)
	if name == "" || key == "" {
		return nil, services.Wrap(services.ErrValidation, "", "create series", "series name is empty", nil)
	}
	series, created, err := m.store.CreateSeries(ctx, name, key, tournament)
	if err != nil {
		return nil, err
	}
	if !created && (!sameLabel(series.Name, name) || !sameLabel(series.Tournament, tournament)) {
		return nil, services.Wrap(services.ErrValidation, "", "create series",
			fmt.Sprintf("slug %q already belongs to series %q", key, describeSeries(series.Name, series.Tournament)), nil)
	}
	if created {
		m.logger.Info("series created",
			logging.Int64("series_id", series.ID),
			logging.String("series", series.Name),
			logging.String("slug", series.Slug),
		)
	}
	return series, nil
}

func sameLabel(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

func describeSeries(name, tournament string) string {
	if tournament == "" {
		return name
	}
	return tournament + " / " + name
}

// DeleteSeries removes a series and reports how many matches lost their
// link. The matches stay in the catalog.
func (m *Manager) DeleteSeries(ctx context.Context, seriesID int64) (int, error) {
	detached, err := m.store.RemoveSeries(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	m.logger.Info("series deleted", logging.Int64("series_id", seriesID), logging.Int("matches_detached", detached))
	return detached, nil
}

// List returns every series.
func (m *Manager) List(ctx context.Context) ([]catalog.Series, error) {
	return m.store.ListSeries(ctx)
}

// AssignSeries links a match to a series, replacing any previous link.
func (m *Manager) AssignSeries(ctx context.Context, matchID, seriesID int64) error {
	if seriesID <= 0 {
		return services.Wrap(services.ErrValidation, "", "assign series", "series id must be positive", nil)
	}
	if err := m.store.SetMatchSeries(ctx, matchID, seriesID); err != nil {
		return err
	}
	m.logger.Info("match assigned to series", logging.Int64(logging.FieldMatchID, matchID), logging.Int64("series_id", seriesID))
	return nil
}

// RemoveSeries clears the series link of a match.
func (m *Manager) RemoveSeries(ctx context.Context, matchID int64) error {
	return m.store.SetMatchSeries(ctx, matchID, 0)
}

// NormalizeTag trims and lower-cases a tag label.
func NormalizeTag(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// AddTag attaches a label; adding an existing label is a no-op.
func (m *Manager) AddTag(ctx context.Context, matchID int64, label string) (bool, error) {
	label = NormalizeTag(label)
	if label == "" {
		return false, services.Wrap(services.ErrValidation, "", "add tag", "tag is empty", nil)
	}
	return m.store.AddTag(ctx, matchID, label)
}

// RemoveTag detaches a label and reports whether it was present.
func (m *Manager) RemoveTag(ctx context.Context, matchID int64, label string) (bool, error) {
	label = NormalizeTag(label)
	if label == "" {
		return false, services.Wrap(services.ErrValidation, "", "remove tag", "tag is empty", nil)
	}
	return m.store.RemoveTag(ctx, matchID, label)
}

// AddTags applies several labels, skipping blanks.
func (m *Manager) AddTags(ctx context.Context, matchID int64, labels []string) error {
	for _, label := range labels {
		if NormalizeTag(label) == "" {
			continue
		}
		if _, err := m.AddTag(ctx, matchID, label); err != nil {
			return err
		}
	}
	return nil
}
