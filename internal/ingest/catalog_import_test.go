package ingest_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recbase/internal/ingest"
	"recbase/internal/resolver"
	"recbase/internal/services"
	"recbase/internal/testsupport"
)

func TestImportCatalogCarriesLabels(t *testing.T) {
	ctx := context.Background()
	src := newHarness(t)
	dst := newHarness(t)

	povA, povB := []byte("imported pov a"), []byte("imported pov b")
	for _, h := range []*harness{src, dst} {
		h.parser.Register(povA, testsupport.NewHeader())
		h.parser.Register(povB, testsupport.NewHeader(testsupport.WithRecorder(2, "Woogy")))
	}
	for _, data := range [][]byte{povA, povB} {
		src.mustIngest(t, ingest.Request{
			Name:            "pov.mgz",
			Data:            data,
			Source:          ingest.SourcePlatform,
			Reference:       "voobly:555",
			Series:          "Grand Final",
			Tournament:      "KotD",
			Tags:            []string{"finals"},
			PlatformID:      "voobly",
			PlatformMatchID: "555",
			Profiles:        map[string]string{"Iketh": "100"},
		})
	}

	reports, err := dst.service.ImportCatalog(ctx, src.service, []string{"imported"})
	if err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}
	if len(reports) != 2 || ingest.Failed(reports) != 0 {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[0].MatchID != reports[1].MatchID {
		t.Fatalf("perspectives should land on one match: %+v", reports)
	}

	m, err := dst.store.MatchByPlatform(ctx, "voobly", "555")
	if err != nil || m == nil {
		t.Fatalf("MatchByPlatform = %v, %v", m, err)
	}
	detail, err := dst.store.MatchDetail(ctx, m.ID)
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}
	if detail.Series == nil || detail.Series.Name != "Grand Final" || detail.Series.Tournament != "KotD" {
		t.Fatalf("series = %+v", detail.Series)
	}
	if strings.Join(detail.Tags, ",") != "finals,imported" {
		t.Fatalf("tags = %v", detail.Tags)
	}
	if detail.Players[0].ProfileID != "100" {
		t.Fatalf("players = %+v", detail.Players)
	}
	if len(detail.Files) != 2 || detail.Files[0].Source != ingest.SourcePlatform || detail.Files[0].Reference != "voobly:555" {
		t.Fatalf("files = %+v", detail.Files)
	}

	reports, err = dst.service.ImportCatalog(ctx, src.service, nil)
	if err != nil {
		t.Fatalf("ImportCatalog again: %v", err)
	}
	for _, r := range reports {
		if r.Outcome != resolver.DuplicateFile {
			t.Fatalf("second import should only find duplicates: %+v", reports)
		}
	}

	if _, err := src.service.ImportCatalog(ctx, src.service, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation importing a catalog into itself, got %v", err)
	}
}
