package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const DefaultMaxObjectBytes = 10 << 20

var (
	ErrContentTypeNotAllowed = errors.New("content type not allowed")
	ErrObjectTooLarge        = errors.New("object exceeds size limit")
)

// AllowedImageTypes is the MIME allow-list for the generated-images bucket.
var AllowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

type BucketConfig struct {
	Name          string
	CDNDomain     string
	PublicBaseURL string
	// ProjectID is only needed when EnsureBucket has to create the bucket.
	ProjectID      string
	Location       string
	Credentials    string
	MaxObjectBytes int64
	Storage        ObjectStorageConfig
}

// BucketService stores generated images in a single public bucket.
type BucketService interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
	GetPublicURL(key string) string
	BucketName() string
}

type bucketService struct {
	log            *logger.Logger
	storageClient  *storage.Client
	storageMode    ObjectStorageMode
	emulatorHost   string
	name           string
	cdnDomain      string
	publicBaseURL  string
	projectID      string
	location       string
	maxObjectBytes int64
}

func NewBucketService(ctx context.Context, log *logger.Logger, cfg BucketConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingBucket}
	}
	serviceLog := log.With("service", "BucketService")

	publicBaseURL, publicBaseSource, err := resolvePublicBaseURL(cfg.PublicBaseURL, cfg.Storage)
	if err != nil {
		return nil, err
	}

	stClient, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Storage.Mode,
		"mode_source", cfg.Storage.ModeSource(),
		"emulator_host", cfg.Storage.EmulatorHost,
		"public_base_source", publicBaseSource,
		"public_base_url", publicBaseURL,
		"bucket", cfg.Name,
	)

	bs := newBucketService(serviceLog, cfg, publicBaseURL)
	bs.storageClient = stClient
	return bs, nil
}

func newBucketService(log *logger.Logger, cfg BucketConfig, publicBaseURL string) *bucketService {
	maxBytes := cfg.MaxObjectBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}
	return &bucketService{
		log:            log,
		storageMode:    cfg.Storage.Mode,
		emulatorHost:   strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/"),
		name:           strings.TrimSpace(cfg.Name),
		cdnDomain:      strings.TrimSpace(cfg.CDNDomain),
		publicBaseURL:  publicBaseURL,
		projectID:      strings.TrimSpace(cfg.ProjectID),
		location:       strings.TrimSpace(cfg.Location),
		maxObjectBytes: maxBytes,
	}
}

func newStorageClientForMode(ctx context.Context, cfg BucketConfig) (*storage.Client, error) {
	switch cfg.Storage.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptions(cfg.Credentials)
		opts = append(opts, option.WithScopes(storage.ScopeFullControl))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/")
		return storage.NewClient(ctx,
			option.WithoutAuthentication(),
			option.WithEndpoint(endpoint+"/storage/v1/"),
		)
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Storage.Mode)}
	}
}

func resolvePublicBaseURL(raw string, storageCfg ObjectStorageConfig) (baseURL string, source string, err error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if !isAbsoluteURL(raw) {
			return "", "", &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidPublicBase, Value: raw}
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}
	if storageCfg.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (bs *bucketService) BucketName() string { return bs.name }

// EnsureBucket creates the bucket with public read when it is missing. An
// "already exists" conflict from a concurrent creator counts as success.
func (bs *bucketService) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	bucket := bs.storageClient.Bucket(bs.name)
	if _, err := bucket.Attrs(ctx); err == nil {
		bs.log.Debug("Bucket present", "bucket", bs.name)
		return nil
	} else if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("inspect bucket %q: %w", bs.name, err)
	}

	projectID := bs.projectID
	if projectID == "" {
		if bs.storageMode != ObjectStorageModeGCSEmulator {
			return fmt.Errorf("bucket %q does not exist and GCP_PROJECT_ID is not set", bs.name)
		}
		projectID = "local"
	}

	attrs := &storage.BucketAttrs{
		Location:                   bs.location,
		PredefinedACL:              "publicRead",
		PredefinedDefaultObjectACL: "publicRead",
		Labels:                     map[string]string{"purpose": "generated-images"},
	}
	if err := bucket.Create(ctx, projectID, attrs); err != nil {
		if isConflict(err) {
			bs.log.Info("Bucket created concurrently", "bucket", bs.name)
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", bs.name, err)
	}
	bs.log.Info("Bucket created", "bucket", bs.name, "max_object_bytes", bs.maxObjectBytes)
	return nil
}

func isConflict(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusConflict
	}
	return false
}

func (bs *bucketService) checkUpload(key string, size int, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty object key")
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		ct = contentTypeForKey(key)
	}
	allowed := false
	for _, t := range AllowedImageTypes {
		if ct == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, ct)
	}
	if int64(size) > bs.maxObjectBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrObjectTooLarge, size, bs.maxObjectBytes)
	}
	return ct, nil
}

// Upload writes data at key, replacing any existing object.
func (bs *bucketService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	ct, err := bs.checkUpload(key, len(data), contentType)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bs.name).Object(strings.TrimLeft(key, "/")).NewWriter(ctx)
	w.ContentType = ct
	w.CacheControl = "public, max-age=3600"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// DeletePrefix removes every object under prefix. Individual delete failures
// are logged and skipped.
func (bs *bucketService) DeletePrefix(ctx context.Context, prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return errors.New("refusing to delete with empty prefix")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	bucket := bs.storageClient.Bucket(bs.name)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("list %q: %w", prefix, err)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			bs.log.Warn("Delete object failed", "key", attrs.Name, "error", err)
		}
	}
	return nil
}

// GetPublicURL resolves in order: CDN domain, emulator media URL, configured
// public base URL, storage.googleapis.com.
// Key segments are path-escaped, since block ids in keys come from model output.
func (bs *bucketService) GetPublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.storageMode == ObjectStorageModeGCSEmulator && bs.cdnDomain == "" {
		if u := bs.emulatorMediaURL(key); u != "" {
			return u
		}
	}
	path := escapeKey(key)
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, path)
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, bs.name, path)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.name, path)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (bs *bucketService) emulatorMediaURL(key string) string {
	base := strings.TrimRight(strings.TrimSpace(bs.publicBaseURL), "/")
	if base == "" {
		base = bs.emulatorHost
	}
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(bs.name), url.PathEscape(key))
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return ""
	}
}
