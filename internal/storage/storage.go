package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/clinic-portal/portal-service/internal/config"
	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("stored file not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Key prefixes group uploads by what they belong to.
const (
	PrefixResourceFiles  = "resources/files"
	PrefixResourceCovers = "resources/covers"
	PrefixContent        = "personalized"
)

type ObjectInfo struct {
	Size        int64
	ContentType string
}

// FileStorage persists uploaded files under opaque keys.
type FileStorage interface {
	Save(ctx context.Context, prefix, filename string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected in cfg.
func New(ctx context.Context, cfg config.StorageConfig) (FileStorage, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "disk", "":
		return NewDiskStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewKey returns "<prefix>/<uuid><ext>" keeping the lowercase extension of filename.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(prefix, uuid.NewString()+ext)
}

// CleanKey rejects keys that would escape the storage root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "\\") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
