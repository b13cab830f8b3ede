package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

func TestBucketServiceEmulatorLifecycle(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("DP_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set DP_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	if !isEmulatorReachable(emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	ctx := context.Background()
	suffix := time.Now().UnixNano()
	bucket, err := NewBucketService(ctx, logger.Nop(), BucketConfig{
		Name:    fmt.Sprintf("dp-it-images-%d", suffix),
		Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: emulatorHost},
	})
	if err != nil {
		t.Fatalf("NewBucketService: %v", err)
	}

	if err := bucket.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket (second call): %v", err)
	}

	key := fmt.Sprintf("p-%d/hero-0.png", suffix)
	png := []byte("\x89PNG\r\n\x1a\nfake")
	if err := bucket.Upload(ctx, key, png, "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := bucket.Upload(ctx, key, png, "image/png"); err != nil {
		t.Fatalf("Upload (overwrite): %v", err)
	}

	resp, err := http.Get(bucket.GetPublicURL(key))
	if err != nil {
		t.Fatalf("GET public url: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != string(png) {
		t.Fatalf("public body mismatch: status=%d len=%d", resp.StatusCode, len(body))
	}

	if err := bucket.DeletePrefix(ctx, fmt.Sprintf("p-%d/", suffix)); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
}

func isEmulatorReachable(emulatorHost string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}
