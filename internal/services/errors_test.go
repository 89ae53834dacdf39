package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"recbase/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, services.StageParse, "header", "parser exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"parse", "header", "parser exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToStorageMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrStorageUnavailable) {
		t.Fatalf("expected storage marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestOutcomeName(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "OK"},
		{services.Wrap(services.ErrMetadataIncomplete, services.StageFingerprint, "extract", "map missing", nil), "MetadataIncomplete"},
		{fmt.Errorf("remove: %w", services.ErrNotFound), "NotFound"},
		{services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", "", errors.New("dial")), "StorageUnavailable"},
		{services.ErrFingerprintRace, "FingerprintCollisionRace"},
		{errors.New("plain"), "Error"},
	}
	for _, tc := range cases {
		if got := services.OutcomeName(tc.err); got != tc.want {
			t.Fatalf("OutcomeName(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.Wrap(services.ErrMetadataIncomplete, services.StageParse, "", "", nil)) {
		t.Fatal("parse failures must not be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrStorageUnavailable, services.StagePersist, "", "", nil)) {
		t.Fatal("storage failures should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrFingerprintRace, services.StagePersist, "", "", nil)) {
		t.Fatal("fingerprint races are re-run by the resolver, not the storage retry loop")
	}
}
