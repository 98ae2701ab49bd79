package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
	ErrEmptyObject    = errors.New("object is empty")
)

// LocalBlobStore keeps uploaded objects on disk as <base>/<bucket>/<path>.
type LocalBlobStore struct {
	baseDir string
	tempDir string
}

// NewLocalBlobStore creates the storage directories under baseDir.
func NewLocalBlobStore(baseDir string) (*LocalBlobStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	tempDir := filepath.Join(baseDir, ".tmp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalBlobStore{baseDir: baseDir, tempDir: tempDir}, nil
}

// TempDir is a scratch directory on the same filesystem as the objects.
func (s *LocalBlobStore) TempDir() string {
	return s.tempDir
}

func (s *LocalBlobStore) resolve(bucket, objectPath string) (string, error) {
	if bucket == "" || objectPath == "" {
		return "", ErrInvalidPath
	}
	for _, part := range []string{bucket, objectPath} {
		clean := filepath.ToSlash(filepath.Clean(part))
		if filepath.IsAbs(part) || clean == ".." || strings.HasPrefix(clean, "../") {
			return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, bucket, objectPath)
		}
	}
	if strings.Contains(bucket, "/") || strings.HasPrefix(bucket, ".") {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidPath, bucket)
	}
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(objectPath)), nil
}

// Put streams r into the object, replacing it atomically. At most maxBytes
// are accepted when maxBytes > 0.
func (s *LocalBlobStore) Put(ctx context.Context, bucket, objectPath string, r io.Reader, maxBytes int64) (int64, error) {
	dest, err := s.resolve(bucket, objectPath)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create object directory: %w", err)
	}

	tempPath := filepath.Join(s.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	written, err := io.Copy(tempFile, src)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to write object: %w", err)
	}
	if maxBytes > 0 && written > maxBytes {
		os.Remove(tempPath)
		return 0, fmt.Errorf("object exceeds %d bytes", maxBytes)
	}
	if written == 0 {
		os.Remove(tempPath)
		return 0, ErrEmptyObject
	}

	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to move object into place: %w", err)
	}
	return written, nil
}

// Download copies the object into dst.
func (s *LocalBlobStore) Download(ctx context.Context, bucket, objectPath string, dst io.Writer) error {
	src, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, objectPath)
		}
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

// Remove deletes the object. Missing objects are not an error.
func (s *LocalBlobStore) Remove(bucket, objectPath string) error {
	path, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
