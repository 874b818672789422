package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

func skipIfNoMinio(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("SKIP_S3_TESTS") == "1" {
		t.Skip("Skipping S3 tests (SKIP_S3_TESTS=1)")
	}
	client, err := New(Config{
		Endpoint:        "localhost:9000",
		Bucket:          "vectord-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	if err != nil {
		t.Skipf("Skipping S3 tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.EnsureBucket(ctx); err != nil {
		t.Skipf("Skipping S3 tests: MinIO not available: %v", err)
	}
	return client
}

func TestIsObjectURL(t *testing.T) {
	if !IsObjectURL("s3://bucket/uploads/u1/file.md") {
		t.Error("s3:// URL should be an object URL")
	}
	if IsObjectURL("https://example.com/file.md") {
		t.Error("https URL is not an object URL")
	}
}

func TestClient_UploadRoundTrip(t *testing.T) {
	client := skipIfNoMinio(t)
	ctx := context.Background()

	content := []byte("# Uploaded\n\nfile body")
	objectURL, err := client.PutUpload(ctx, "u1", "notes.md", content, "text/markdown")
	if err != nil {
		t.Fatalf("PutUpload() error = %v", err)
	}
	if !IsObjectURL(objectURL) {
		t.Fatalf("PutUpload() returned %q, want s3:// URL", objectURL)
	}

	got, err := client.GetObject(ctx, objectURL)
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("GetObject() = %q, want %q", got, content)
	}
}

func TestClient_GetObjectRejectsForeignURL(t *testing.T) {
	client := skipIfNoMinio(t)
	if _, err := client.GetObject(context.Background(), "https://example.com/x"); err == nil {
		t.Error("GetObject() should reject non-s3 URLs")
	}
	if _, err := client.GetObject(context.Background(), "s3://other-bucket/key"); err == nil {
		t.Error("GetObject() should reject foreign buckets")
	}
}
