// Package convert maintains the derived WebP family of image attachments.
//
// A Manager reacts to two media library events: metadata generation, which
// (re)creates one WebP file per registered size and replaces the stored
// WebP metadata record, and attachment deletion, which removes every derived
// file and the record. Per-size codec failures never abort a conversion;
// they are collected in an *Error returned to the caller.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/types"
)

// Quality is the fixed WebP encoding quality.
const Quality = 70

// FullSize names the implicit full-size rendition of an attachment.
const FullSize = "fullsize"

// rasterExtensions are the case-sensitive suffixes eligible for conversion.
var rasterExtensions = []string{".jpg", ".jpeg", ".png"}

// Store is the media library surface the manager reads and writes.
type Store interface {
	// AttachedFile returns the absolute path of the attachment's primary file.
	AttachedFile(ctx context.Context, id int64) (string, error)
	// AttachmentMetadata returns the size metadata, or nil if none is stored.
	AttachmentMetadata(ctx context.Context, id int64) (*types.AttachmentMetadata, error)
	// SetHasWebP persists the "has WebP" flag.
	SetHasWebP(ctx context.Context, id int64, has bool) error
	// UpdateWebPMetadata replaces the stored WebP metadata record.
	UpdateWebPMetadata(ctx context.Context, id int64, meta *types.WebPMetadata) error
	// DeleteWebPMetadata removes the WebP metadata record and the "has WebP" flag.
	DeleteWebPMetadata(ctx context.Context, id int64) error
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Store is the media library (required).
	Store Store
	// Codec performs the conversions (required).
	Codec Codec
	// Remove deletes a derived file. Defaults to RemoveFile.
	Remove func(path string) error
	// Logger receives per-size diagnostics. May be nil.
	Logger *log.Logger
}

// Manager converts and removes the WebP renditions of attachments.
type Manager struct {
	store  Store
	codec  Codec
	remove func(path string) error
	logger *log.Logger
}

// NewManager creates a Manager from cfg.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("convert: store is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("convert: codec is required")
	}
	if cfg.Remove == nil {
		cfg.Remove = RemoveFile
	}
	return &Manager{
		store:  cfg.Store,
		codec:  cfg.Codec,
		remove: cfg.Remove,
		logger: cfg.Logger,
	}, nil
}

// image is one rendition of an attachment on disk.
type image struct {
	name   string
	path   string
	width  int
	height int
}

// DestinationPath returns the WebP path for path. Paths without a .jpg,
// .jpeg or .png suffix are returned unchanged.
func DestinationPath(path string) string {
	for _, ext := range rasterExtensions {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + ".webp"
		}
	}
	return path
}

// Convert produces one WebP file per rendition of the attachment and
// replaces its WebP metadata record. When meta is nil the stored metadata
// is used.
//
// It returns nil when every eligible size converted, an *Error when one or
// more sizes failed, or a wrapped error when metadata could not be read or
// persisted.
func (m *Manager) Convert(ctx context.Context, id int64, meta *types.AttachmentMetadata) error {
	images, meta, err := m.images(ctx, id, meta)
	if err != nil {
		return err
	}

	out := &types.WebPMetadata{
		Width:  meta.Width,
		Height: meta.Height,
		File:   DestinationPath(meta.File),
		Sizes:  make(map[string]types.SizeMeta),
	}

	collected := NewError("")
	for _, img := range images {
		dst := DestinationPath(img.path)
		if dst == img.path {
			continue
		}

		if err := m.codec.Convert(ctx, img.path, dst, Options{Quality: Quality}); err != nil {
			m.logger.Debug("webp conversion failed", map[string]any{
				"attachment_id": id,
				"size":          img.name,
				"source":        img.path,
				"error":         err.Error(),
			})
			collected = collected.Add(fmt.Sprintf("Unable to convert %s to webp.", filepath.Base(dst)))
			continue
		}

		if img.name == FullSize {
			continue
		}
		out.Sizes[img.name] = types.SizeMeta{
			File:     filepath.Base(dst),
			Width:    img.width,
			Height:   img.height,
			MimeType: types.WebPMimeType,
		}
	}

	if err := m.store.SetHasWebP(ctx, id, true); err != nil {
		return fmt.Errorf("attachment %d: persist has_webp: %w", id, err)
	}
	if err := m.store.UpdateWebPMetadata(ctx, id, out); err != nil {
		return fmt.Errorf("attachment %d: persist webp metadata: %w", id, err)
	}

	if collected.Failed() {
		return collected
	}
	return nil
}

// Delete removes every derived WebP file of the attachment, recomputing the
// paths from its current metadata, then removes the WebP metadata record.
// Missing files are not an error.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	images, _, err := m.images(ctx, id, nil)
	if err != nil {
		return err
	}

	var errs []error
	for _, img := range images {
		dst := DestinationPath(img.path)
		if dst == img.path {
			continue
		}
		if err := m.remove(dst); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", dst, err))
		}
	}

	if err := m.store.DeleteWebPMetadata(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("attachment %d: delete webp metadata: %w", id, err))
	}

	return errors.Join(errs...)
}

// images lists the full-size file followed by every named size, sorted by name.
func (m *Manager) images(ctx context.Context, id int64, meta *types.AttachmentMetadata) ([]image, *types.AttachmentMetadata, error) {
	if meta == nil {
		stored, err := m.store.AttachmentMetadata(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("attachment %d: read metadata: %w", id, err)
		}
		meta = stored
	}
	if meta == nil {
		meta = &types.AttachmentMetadata{}
	}

	full, err := m.store.AttachedFile(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("attachment %d: resolve attached file: %w", id, err)
	}

	images := []image{{name: FullSize, path: full, width: meta.Width, height: meta.Height}}

	names := make([]string, 0, len(meta.Sizes))
	for name := range meta.Sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	dir := filepath.Dir(full)
	for _, name := range names {
		size := meta.Sizes[name]
		if size.File == "" {
			continue
		}
		images = append(images, image{
			name:   name,
			path:   filepath.Join(dir, size.File),
			width:  size.Width,
			height: size.Height,
		})
	}

	return images, meta, nil
}

// RemoveFile deletes path, treating a missing file as success.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
