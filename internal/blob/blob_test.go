package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"recbase/internal/blob"
	"recbase/internal/config"
	"recbase/internal/services"
	"recbase/internal/testsupport"
)

func TestKeyShardsByPrefix(t *testing.T) {
	got := blob.Key("ABCDEF0123")
	if got != "ab/abcdef0123" {
		t.Fatalf("Key = %q", got)
	}
	if blob.Key("ab") != "ab" {
		t.Fatalf("short hash should pass through")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("mgz header body "), 512)

	compressed, err := blob.Codec{Compress: true}.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Fatalf("expected compression, got %d >= %d bytes", len(compressed), len(payload))
	}
	raw, err := blob.Codec{}.Decode(compressed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(raw, payload) {
		t.Fatal("decoded payload differs")
	}
}

func TestCodecPassesThroughUncompressed(t *testing.T) {
	payload := []byte("plain payload")
	stored, err := blob.Codec{}.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, err := blob.Codec{Compress: true}.Decode(stored)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(raw) != "plain payload" {
		t.Fatalf("Decode = %q", raw)
	}
}

func TestFSStoreLifecycle(t *testing.T) {
	root := t.TempDir()
	store, err := blob.NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	ctx := context.Background()
	key := blob.Key("0123456789abcdef")

	if err := store.Put(ctx, key, []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, key, []byte("one")); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "one" {
		t.Fatalf("Get = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "01"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".blob-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete of missing key: %v", err)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	store, err := blob.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for _, key := range []string{"", "../outside", "/abs/path"} {
		if err := store.Put(context.Background(), key, []byte("x")); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Put(%q) = %v, want ErrValidation", key, err)
		}
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := blob.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := store.(*blob.FSStore); !ok {
		t.Fatalf("Open returned %T, want *blob.FSStore", store)
	}

	cfg.Blob.Backend = "tape"
	if _, err := blob.Open(context.Background(), cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Open(tape) = %v, want ErrConfiguration", err)
	}

	cfg.Blob.Backend = config.BlobBackendS3
	cfg.Blob.Bucket = ""
	if _, err := blob.Open(context.Background(), cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Open(s3 without bucket) = %v, want ErrConfiguration", err)
	}
}

// fakeS3 serves path-style PUT/GET/DELETE for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StoreAgainstCompatibleEndpoint(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "missing"))

	ctx := context.Background()
	store, err := blob.NewS3(ctx, blob.S3Options{
		Endpoint:        srv.URL,
		Bucket:          "recs",
		Region:          "auto",
		Prefix:          "archive",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	key := blob.Key("feedfacecafe")
	if err := store.Put(ctx, key, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fake.mu.Lock()
	_, ok := fake.objects["recs/archive/fe/feedfacecafe"]
	fake.mu.Unlock()
	if !ok {
		t.Fatalf("object not stored under prefixed path, have %v", fake.objects)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Get = %q", got)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}
