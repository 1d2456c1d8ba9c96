package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"editfixture/internal/blob/core"
)

func TestMockStorePutGetHead(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	info, err := store.Put(ctx, "fixtures/interview.json", strings.NewReader(`{"name":"interview"}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"fixture": "interview"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 20 || info.ETag != "etag123" || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "fixtures/interview.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	got, rc, err := store.Get(ctx, "fixtures/interview.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != `{"name":"interview"}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got.Metadata["fixture"] != "interview" {
		t.Fatalf("expected metadata round trip, got %+v", got.Metadata)
	}
	if _, err := store.Put(ctx, "fixtures/interview.json", strings.NewReader("{}"), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	head, err := store.Head(ctx, "fixtures/interview.json")
	if err != nil || head.Size != 2 {
		t.Fatalf("expected overwritten object, got %+v %v", head, err)
	}
}

func TestMockStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found from get, got %v", err)
	}
	ok, err := store.Delete(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected false delete, got %v %v", ok, err)
	}
	if _, err := store.Put(ctx, "", strings.NewReader(""), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
}

func TestMockStoreListPagesAndDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewMockWithPageSize(2)
	for _, k := range []string{"runs/c/report.json", "runs/a/report.json", "runs/b/report.json", "fixtures/x.json"} {
		if _, err := store.Put(ctx, k, strings.NewReader("{}"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "runs/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Key != "runs/a/report.json" || list[2].Key != "runs/c/report.json" {
		t.Fatalf("unexpected paged listing %+v", list)
	}
	ok, err := store.Delete(ctx, "runs/a/report.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	list, _ = store.List(ctx, "runs/")
	if len(list) != 2 {
		t.Fatalf("expected two objects left, got %d", len(list))
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	url, err := store.PresignURL(ctx, "runs/a/report.json", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "mock-bucket/runs/a/report.json") || !strings.Contains(url, "X-Amz-Expires=60") {
		t.Fatalf("unexpected presigned url %s", url)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
	store, err := New(context.Background(), Config{
		Bucket:          "fixtures",
		Prefix:          "ci/",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("new with static credentials: %v", err)
	}
	if key, _ := store.objectKey("fixtures/a.json"); key != "ci/fixtures/a.json" {
		t.Fatalf("expected prefixed key, got %s", key)
	}
}
