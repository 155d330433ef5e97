// Package photosource resolves photo references to image bytes.
//
// A reference is either a filesystem path or an object URL of the form
// s3://bucket/key served by a MinIO (or other S3-compatible) endpoint.
package photosource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const objectScheme = "s3://"

// ErrObjectsDisabled is returned for s3:// references when no object store is configured.
var ErrObjectsDisabled = errors.New("s3 references are not configured")

// Opener reads the full content of a photo reference.
type Opener interface {
	Open(ctx context.Context, ref string) ([]byte, error)
}

// FileOpener reads photos from the local filesystem. Relative references are
// resolved against Root when it is set.
type FileOpener struct {
	Root string
}

func (f FileOpener) Open(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref
	if f.Root != "" && !filepath.IsAbs(ref) {
		path = filepath.Join(f.Root, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Router dispatches s3:// references to Objects and everything else to Files.
type Router struct {
	Files   Opener
	Objects Opener
}

func (r *Router) Open(ctx context.Context, ref string) ([]byte, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errors.New("empty photo reference")
	}
	if IsObjectRef(ref) {
		if r.Objects == nil {
			return nil, ErrObjectsDisabled
		}
		return r.Objects.Open(ctx, ref)
	}
	if r.Files == nil {
		return FileOpener{}.Open(ctx, ref)
	}
	return r.Files.Open(ctx, ref)
}

// IsObjectRef reports whether ref uses the s3:// scheme.
func IsObjectRef(ref string) bool {
	return strings.HasPrefix(ref, objectScheme)
}

// ParseObjectRef splits s3://bucket/key into its parts.
func ParseObjectRef(ref string) (bucket, key string, err error) {
	if !IsObjectRef(ref) {
		return "", "", fmt.Errorf("not an object reference: %q", ref)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, objectScheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("object reference must be s3://bucket/key: %q", ref)
	}
	return bucket, key, nil
}
