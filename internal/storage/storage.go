package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the planner needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// UploadFiles copies local files under prefix, keeping their base names,
// and returns the object keys.
func UploadFiles(ctx context.Context, store ObjectStorage, prefix string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return keys, fmt.Errorf("read %s: %w", p, err)
		}

		key := path.Join(prefix, filepath.Base(p))
		if err := store.UploadObject(ctx, key, data); err != nil {
			return keys, fmt.Errorf("upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
