package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const imageContentType = "image/png"

var ErrStore = errors.New("store image")

// ObjectStore is the part of the bucket service the pipeline writes through.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GetPublicURL(key string) string
}

// ImageKey is the object path for a block image. Writing the same key again
// replaces the previous object.
func ImageKey(projectID uuid.UUID, blockID string) string {
	return projectID.String() + "/" + blockID + ".png"
}

func ThumbnailKey(projectID uuid.UUID) string {
	return projectID.String() + "/thumbnail.png"
}

// StoreImage uploads data under the block's key and returns its public URL.
func StoreImage(ctx context.Context, store ObjectStore, projectID uuid.UUID, blockID string, data []byte) (string, error) {
	if strings.TrimSpace(blockID) == "" {
		return "", fmt.Errorf("%w: missing block id", ErrStore)
	}
	return storeObject(ctx, store, ImageKey(projectID, blockID), data)
}

func storeObject(ctx context.Context, store ObjectStore, key string, data []byte) (string, error) {
	if err := store.Upload(ctx, key, data, imageContentType); err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrStore, key, err)
	}
	return store.GetPublicURL(key), nil
}
