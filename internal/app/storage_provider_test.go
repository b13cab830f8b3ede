package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dydqjadlsp/detailpage/internal/platform/gcp"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		name string
		src  error
		want StorageProviderBootstrapErrorCode
	}{
		{"invalid mode", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorInvalidMode, Value: "bad"}, StorageProviderBootstrapErrorInvalidMode},
		{"missing emulator host", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorMissingEmulatorHost}, StorageProviderBootstrapErrorMissingEmulatorHost},
		{"invalid emulator host", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorInvalidEmulatorHost, Value: "fake-gcs:4443"}, StorageProviderBootstrapErrorInvalidEmulatorHost},
		{"missing bucket", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorMissingBucket}, StorageProviderBootstrapErrorMissingBucket},
		{"wrapped config error", errors.Join(errors.New("validate"), &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorInvalidPublicBase}), StorageProviderBootstrapErrorInvalidPublicBase},
		{"connect failed", errors.New("dial tcp: connection refused"), StorageProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStorageProviderBootstrapError("gcs", "", tc.src)
			var got *StorageProviderBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
			}
			if got.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, got.Code)
			}
			if !errors.Is(err, tc.src) {
				t.Fatalf("cause not preserved")
			}
		})
	}
}

func stubBucketFactory(t *testing.T) *gcp.BucketConfig {
	t.Helper()
	orig := newBucketService
	t.Cleanup(func() { newBucketService = orig })

	captured := &gcp.BucketConfig{}
	newBucketService = func(_ context.Context, _ *logger.Logger, cfg gcp.BucketConfig) (gcp.BucketService, error) {
		*captured = cfg
		return nil, nil
	}
	return captured
}

func TestResolveBucketServiceInvalidMode(t *testing.T) {
	stubBucketFactory(t)
	_, err := resolveBucketService(context.Background(), logger.Nop(), Config{
		ObjectStorageMode: "invalid",
	})
	if got := storageProviderBootstrapErrorCode(err); got != StorageProviderBootstrapErrorInvalidMode {
		t.Fatalf("code: want=%q got=%q (err=%v)", StorageProviderBootstrapErrorInvalidMode, got, err)
	}
}

func TestResolveBucketServiceGCSMode(t *testing.T) {
	captured := stubBucketFactory(t)
	_, err := resolveBucketService(context.Background(), logger.Nop(), Config{
		ObjectStorageMode: string(gcp.ObjectStorageModeGCS),
		ImageBucketName:   "generated-images",
		StorageCDNDomain:  "cdn.example.com",
	})
	if err != nil {
		t.Fatalf("resolveBucketService: %v", err)
	}
	if captured.Storage.Mode != gcp.ObjectStorageModeGCS {
		t.Fatalf("mode: want=%q got=%q", gcp.ObjectStorageModeGCS, captured.Storage.Mode)
	}
	if captured.Name != "generated-images" || captured.CDNDomain != "cdn.example.com" {
		t.Fatalf("bucket config not forwarded: %+v", captured)
	}
}

func TestResolveBucketServiceInfersEmulatorFromHost(t *testing.T) {
	captured := stubBucketFactory(t)
	_, err := resolveBucketService(context.Background(), logger.Nop(), Config{
		StorageEmulatorHost: "http://fake-gcs:4443/",
		ImageBucketName:     "generated-images",
	})
	if err != nil {
		t.Fatalf("resolveBucketService: %v", err)
	}
	if captured.Storage.Mode != gcp.ObjectStorageModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", gcp.ObjectStorageModeGCSEmulator, captured.Storage.Mode)
	}
	if captured.Storage.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: got=%q", captured.Storage.EmulatorHost)
	}
}

func TestResolveBucketServiceEmulatorHostErrors(t *testing.T) {
	stubBucketFactory(t)
	cases := []struct {
		host string
		want StorageProviderBootstrapErrorCode
	}{
		{"", StorageProviderBootstrapErrorMissingEmulatorHost},
		{"not-a-url", StorageProviderBootstrapErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		_, err := resolveBucketService(context.Background(), logger.Nop(), Config{
			ObjectStorageMode:   string(gcp.ObjectStorageModeGCSEmulator),
			StorageEmulatorHost: tc.host,
		})
		if got := storageProviderBootstrapErrorCode(err); got != tc.want {
			t.Fatalf("host=%q code: want=%q got=%q", tc.host, tc.want, got)
		}
	}
}

func TestResolveBucketServiceConnectFailure(t *testing.T) {
	orig := newBucketService
	t.Cleanup(func() { newBucketService = orig })
	newBucketService = func(context.Context, *logger.Logger, gcp.BucketConfig) (gcp.BucketService, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	_, err := resolveBucketService(context.Background(), logger.Nop(), Config{ObjectStorageMode: "gcs"})
	if got := storageProviderBootstrapErrorCode(err); got != StorageProviderBootstrapErrorConnectFailed {
		t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorConnectFailed, got)
	}
}
