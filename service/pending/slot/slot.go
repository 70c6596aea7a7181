// Package slot implements the single named key-value slot that holds the
// serialized pending set: read once at hydration, written after every
// successful mutation.
package slot

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Slot is one named blob in an afs-addressable location (local file by
// default, any afs scheme otherwise).
type Slot struct {
	fs  afs.Service
	url string
}

// New creates a slot named name under basePath, ensuring the base directory
// exists.
func New(basePath, name string) (*Slot, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("slot name cannot be empty")
	}
	fsService := afs.New()
	ctx := context.Background()
	exists, _ := fsService.Exists(ctx, basePath)
	if !exists {
		if err := fsService.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create slot directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &Slot{
		fs:  fsService,
		url: path.Join(basePath, fmt.Sprintf("%s.json", name)),
	}, nil
}

// URL returns the slot's storage location.
func (s *Slot) URL() string {
	return s.url
}

// Read returns the slot content and whether the slot exists.
func (s *Slot) Read(ctx context.Context) ([]byte, bool, error) {
	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check slot %s: %w", s.url, err)
	}
	if !exists {
		return nil, false, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %s: %w", s.url, err)
	}
	return data, true, nil
}

// Write replaces the slot content.
func (s *Slot) Write(ctx context.Context, data []byte) error {
	if err := s.fs.Upload(ctx, s.url, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", s.url, err)
	}
	return nil
}
