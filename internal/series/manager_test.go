package series_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"recbase/internal/catalog"
	"recbase/internal/logging"
	"recbase/internal/series"
	"recbase/internal/services"
	"recbase/internal/testsupport"
)

func newMatch(t *testing.T, store *catalog.Store, fp string) int64 {
	t.Helper()
	var id int64
	err := store.WithTx(context.Background(), func(tx catalog.Tx) error {
		var err error
		id, err = tx.InsertMatch(context.Background(), &catalog.Match{Fingerprint: fp, MapID: 1, Version: "v", Duration: time.Minute})
		return err
	})
	if err != nil {
		t.Fatalf("insert match: %v", err)
	}
	return id
}

func TestSlug(t *testing.T) {
	if got := series.Slug("Grand Final", "King of the Desert 3"); got != "king-of-the-desert-3-grand-final" {
		t.Fatalf("Slug = %q", got)
	}
	if got := series.Slug("Viper vs Hera", ""); got != "viper-vs-hera" {
		t.Fatalf("Slug = %q", got)
	}
}

func TestManagerAssignAndTag(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := series.NewManager(store, logging.NewNop())
	ctx := context.Background()
	matchID := newMatch(t, store, "fp")

	s, err := mgr.CreateSeries(ctx, " Grand Final ", "KotD")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	same, err := mgr.CreateSeries(ctx, "grand final", "kotd")
	if err != nil || same.ID != s.ID {
		t.Fatalf("expected slug match to reuse series, got %+v %v", same, err)
	}

	if _, err := mgr.CreateSeries(ctx, "KotD Grand-Final", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected slug collision to be rejected, got %v", err)
	}

	if err := mgr.AssignSeries(ctx, matchID, s.ID); err != nil {
		t.Fatalf("AssignSeries: %v", err)
	}
	if err := mgr.AssignSeries(ctx, matchID+100, s.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err := mgr.RemoveSeries(ctx, matchID); err != nil {
		t.Fatalf("RemoveSeries: %v", err)
	}
	m, _ := store.Match(ctx, matchID)
	if m.SeriesID != 0 {
		t.Fatal("expected series cleared")
	}

	added, err := mgr.AddTag(ctx, matchID, "  Show  Match ")
	if err != nil || !added {
		t.Fatalf("AddTag: %v %v", added, err)
	}
	added, err = mgr.AddTag(ctx, matchID, "show match")
	if err != nil || added {
		t.Fatalf("second AddTag must be a no-op: %v %v", added, err)
	}
	if _, err := mgr.AddTag(ctx, matchID, "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	tags, _ := store.Tags(ctx, matchID)
	if len(tags) != 1 || tags[0] != "show match" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	if err := mgr.AssignSeries(ctx, matchID, s.ID); err != nil {
		t.Fatalf("AssignSeries: %v", err)
	}
	detached, err := mgr.DeleteSeries(ctx, s.ID)
	if err != nil || detached != 1 {
		t.Fatalf("DeleteSeries = %d, %v", detached, err)
	}
	if m, err := store.Match(ctx, matchID); err != nil || m.SeriesID != 0 {
		t.Fatalf("match should survive without a series link: %+v %v", m, err)
	}
	if _, err := mgr.DeleteSeries(ctx, s.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCreateSeriesRejectsSlugCollision(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	mgr := series.NewManager(store, logging.NewNop())
	ctx := context.Background()

	first, err := mgr.CreateSeries(ctx, "Round 1!", "")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	_, err = mgr.CreateSeries(ctx, "round-1", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for colliding slug, got %v", err)
	}
	if !strings.Contains(err.Error(), `"round-1"`) || !strings.Contains(err.Error(), "Round 1!") {
		t.Fatalf("error should name the slug and the existing series: %v", err)
	}
	again, err := mgr.CreateSeries(ctx, "  round 1! ", "")
	if err != nil || again.ID != first.ID {
		t.Fatalf("same name with other spacing should reuse series: %+v %v", again, err)
	}
	list, err := mgr.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
}
