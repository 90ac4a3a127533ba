package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	backend, err := NewLocalBackend(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to create LocalBackend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

// TestLocalBackend_BasicOperations tests the LocalBackend implementation
func TestLocalBackend_BasicOperations(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	t.Run("Write and Read", func(t *testing.T) {
		testPath := "gen/iii-100.arrow"
		testData := []byte("hello world")

		if err := backend.Write(ctx, testPath, testData); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		data, err := backend.Read(ctx, testPath)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(data) != string(testData) {
			t.Errorf("Read data = %q, want %q", string(data), string(testData))
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		testPath := "overwrite.arrow"
		if err := backend.Write(ctx, testPath, []byte("a much longer first payload")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := backend.Write(ctx, testPath, []byte("short")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		data, err := backend.Read(ctx, testPath)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(data) != "short" {
			t.Errorf("Read data = %q, want %q", string(data), "short")
		}
	})

	t.Run("Exists", func(t *testing.T) {
		testPath := "exists.arrow"

		exists, err := backend.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("Expected file to not exist")
		}

		if err := backend.Write(ctx, testPath, []byte("data")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		exists, err = backend.Exists(ctx, testPath)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("Expected file to exist")
		}
	})

	t.Run("Exists ignores directories", func(t *testing.T) {
		if err := os.MkdirAll(filepath.Join(backend.basePath, "adir"), 0755); err != nil {
			t.Fatal(err)
		}
		exists, err := backend.Exists(ctx, "adir")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("Expected directory to not count as an object")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		testPath := "delete.arrow"
		if err := backend.Write(ctx, testPath, []byte("data")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := backend.Delete(ctx, testPath); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		exists, _ := backend.Exists(ctx, testPath)
		if exists {
			t.Error("Expected file to be deleted")
		}

		// Deleting a missing key is not an error
		if err := backend.Delete(ctx, testPath); err != nil {
			t.Errorf("second Delete failed: %v", err)
		}
	})

	t.Run("Read missing", func(t *testing.T) {
		_, err := backend.Read(ctx, "missing.arrow")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Type", func(t *testing.T) {
		if backend.Type() != "local" {
			t.Errorf("Type() = %q, want %q", backend.Type(), "local")
		}
	})
}

func TestLocalBackend_NoTempLeftovers(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := backend.Write(ctx, "same.arrow", []byte(strings.Repeat("x", i*10))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	entries, err := os.ReadDir(backend.basePath)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one file, got %d", len(entries))
	}
}

func TestLocalBackend_PathTraversal(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	parent := filepath.Dir(backend.basePath)

	for _, key := range []string{"../escape.arrow", "a/../../escape.arrow"} {
		if err := backend.Write(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Write(%q) failed: %v", key, err)
		}
		full, err := backend.resolve(key)
		if err != nil {
			t.Fatalf("resolve(%q) failed: %v", key, err)
		}
		if !strings.HasPrefix(full, backend.basePath+string(filepath.Separator)) {
			t.Errorf("key %q resolved outside base path: %s", key, full)
		}
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.arrow")); !os.IsNotExist(err) {
		t.Error("write escaped the base directory")
	}
}

func TestLocalBackend_Resolve(t *testing.T) {
	backend := newTestBackend(t)

	got, err := backend.resolve("gen/bars-10.arrow")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := filepath.Join(backend.basePath, "gen", "bars-10.arrow")
	if got != want {
		t.Errorf("resolve = %q, want %q", got, want)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal:9000", true, "https://minio.internal:9000"},
		{"http://already:9000", true, "http://already:9000"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.endpoint, tt.useSSL); got != tt.want {
			t.Errorf("normalizeEndpoint(%q, %v) = %q, want %q", tt.endpoint, tt.useSSL, got, tt.want)
		}
	}
}

func TestS3ObjectKey(t *testing.T) {
	b := &S3Backend{bucket: "bench", prefix: "dfio/cache"}
	if got := b.objectKey("/iii-100.arrow"); got != "dfio/cache/iii-100.arrow" {
		t.Errorf("objectKey = %q", got)
	}
	if got := b.GetS3Path("iii-100.arrow"); got != "s3://bench/dfio/cache/iii-100.arrow" {
		t.Errorf("GetS3Path = %q", got)
	}

	bare := &S3Backend{bucket: "bench"}
	if got := bare.objectKey("iii-100.arrow"); got != "iii-100.arrow" {
		t.Errorf("objectKey without prefix = %q", got)
	}
}
