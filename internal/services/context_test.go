package services_test

import (
	"context"
	"testing"

	"recbase/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithFileName(ctx, "rec.20190615-112706.mgz")
	ctx = services.WithStage(ctx, services.StageResolve)
	ctx = services.WithRequestID(ctx, "req-123")

	if name, ok := services.FileNameFromContext(ctx); !ok || name != "rec.20190615-112706.mgz" {
		t.Fatalf("unexpected file name: %v %v", name, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "resolve" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
