package platform_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"recbase/internal/platform"
	"recbase/internal/services"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := platform.New("voobly", "", "key"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestResolveProfileCachesHitsAndMisses(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/users/lookup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("expected key query parameter, got %q", r.URL.RawQuery)
		}
		switch r.URL.Query().Get("name") {
		case "Iketh":
			_, _ = w.Write([]byte(`{"id":"123","name":"Iketh"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	cachePath := filepath.Join(t.TempDir(), "profiles.json")
	client, err := platform.New("voobly", server.URL, "secret",
		platform.WithCache(platform.NewProfileCache(cachePath, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for range 2 {
		id, err := client.ResolveProfile(ctx, "Iketh")
		if err != nil {
			t.Fatalf("ResolveProfile: %v", err)
		}
		if id != "123" {
			t.Fatalf("id = %q", id)
		}
		if _, err := client.ResolveProfile(ctx, "Nobody"); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}

	reloaded := platform.NewProfileCache(cachePath, nil)
	if reloaded.Count() != 2 {
		t.Fatalf("reloaded cache count = %d, want 2", reloaded.Count())
	}
	entry, ok := reloaded.Lookup("iketh")
	if !ok || entry.ProfileID != "123" {
		t.Fatalf("reloaded lookup = %+v, %v", entry, ok)
	}
}

func TestResolveProfileServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := platform.New("voobly", server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.ResolveProfile(context.Background(), "Iketh"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestMatchAndDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/matches/777", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"timestamp":"2020-02-13T21:35:05Z","ladder":"RM 1v1","players":[
			{"id":"1","name":"Iketh","number":1,"url":""},
			{"id":"2","name":"Woogy","number":2,"url":"/files/777-2.mgz"},
			{"id":"3","name":"Dogao","number":3,"url":"/files/777-3"}]}`))
	})
	mux.HandleFunc("/files/777-2.mgz", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "bot" || pass != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("rec-two"))
	})
	mux.HandleFunc("/files/777-3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="rec-3.mgz"`)
		_, _ = w.Write([]byte(strings.Repeat("x", 32)))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := platform.New("voobly", server.URL, "", platform.WithCredentials("bot", "pw"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	match, err := client.Match(ctx, "https://voobly.example/match/view/777/")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match.ID != "777" || match.Ladder != "RM 1v1" || match.Timestamp.IsZero() {
		t.Fatalf("unexpected match: %+v", match)
	}
	if got := match.Recordings(false); len(got) != 2 {
		t.Fatalf("Recordings(false) = %d, want 2", len(got))
	}
	single := match.Recordings(true)
	if len(single) != 1 || single[0].Name != "Woogy" {
		t.Fatalf("Recordings(true) = %+v", single)
	}

	name, data, err := client.Download(ctx, single[0].URL)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "777-2.mgz" || string(data) != "rec-two" {
		t.Fatalf("Download = %q, %q", name, data)
	}

	name, _, err = client.Download(ctx, "/files/777-3")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "rec-3.mgz" {
		t.Fatalf("content-disposition name = %q", name)
	}

	limited, err := platform.New("voobly", server.URL, "", platform.WithMaxDownload(16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := limited.Download(ctx, "/files/777-3"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected size limit ErrValidation, got %v", err)
	}

	if _, err := client.Match(ctx, "888"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown match, got %v", err)
	}
}

func TestMatchID(t *testing.T) {
	cases := map[string]string{
		"123":                            "123",
		"https://x.example/match/123":    "123",
		" https://x.example/match/123/ ": "123",
		"":                               "",
	}
	for in, want := range cases {
		if got := platform.MatchID(in); got != want {
			t.Errorf("MatchID(%q) = %q, want %q", in, got, want)
		}
	}
}
