// Package plugin is the composition root. It wires the WebP asset manager
// into the media library's lifecycle hooks and installs the content
// filters that render responsive image markup.
package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/imagesources/convert"
	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/medialib"
	"github.com/pithecene-io/imagesources/responsive"
	"github.com/pithecene-io/imagesources/types"
)

// Options are the user-facing settings.
type Options struct {
	// FilterContent replaces the stock responsive images filter with the
	// WebP-aware one.
	FilterContent bool
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{FilterContent: true}
}

// Library is the media library surface the hooks and filters need.
type Library interface {
	convert.Store
	responsive.Library
	IsImage(ctx context.Context, id int64) (bool, error)
	DeleteAttachment(ctx context.Context, id int64) error
}

// Deps are the collaborators of a Plugin.
type Deps struct {
	// Library is the media library (required).
	Library Library
	// Uploads locates files for srcset URLs.
	Uploads medialib.Uploads
	// Codec defaults to convert.WebPCodec.
	Codec convert.Codec
	// Remove defaults to convert.RemoveFile.
	Remove func(path string) error
	Logger *log.Logger
}

// ContentFilter transforms rendered post content.
type ContentFilter interface {
	Filter(ctx context.Context, content string) string
}

// Plugin holds the installed hooks and filters.
type Plugin struct {
	library Library
	manager *convert.Manager
	filters []ContentFilter
	logger  *log.Logger
}

// New wires a Plugin from opts and deps.
func New(opts Options, deps Deps) (*Plugin, error) {
	if deps.Library == nil {
		return nil, errors.New("plugin: library is required")
	}
	if deps.Codec == nil {
		deps.Codec = convert.WebPCodec{}
	}

	manager, err := convert.NewManager(convert.ManagerConfig{
		Store:  deps.Library,
		Codec:  deps.Codec,
		Remove: deps.Remove,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	// Exactly one responsive filter is installed: the stock one unless
	// content filtering is enabled.
	calc := medialib.NewCalculator(deps.Uploads)
	filter := responsive.NewInjector(deps.Library, calc, opts.FilterContent, deps.Logger)

	return &Plugin{
		library: deps.Library,
		manager: manager,
		filters: []ContentFilter{filter},
		logger:  deps.Logger,
	}, nil
}

// Manager returns the WebP asset manager.
func (p *Plugin) Manager() *convert.Manager {
	return p.manager
}

// GenerateAttachmentMetadata is the metadata-generated hook. Image
// attachments get their WebP renditions regenerated. The metadata is
// returned unchanged; conversion failures are logged, never returned.
func (p *Plugin) GenerateAttachmentMetadata(
	ctx context.Context,
	id int64,
	meta *types.AttachmentMetadata,
) *types.AttachmentMetadata {
	isImage, err := p.library.IsImage(ctx, id)
	if err != nil {
		p.logger.Warn("attachment lookup failed", map[string]any{
			"attachment_id": id,
			"error":         err.Error(),
		})
		return meta
	}
	if !isImage {
		return meta
	}

	err = p.manager.Convert(ctx, id, meta)
	var collected *convert.Error
	switch {
	case err == nil:
		p.logger.Debug("webp renditions generated", map[string]any{"attachment_id": id})
	case errors.As(err, &collected):
		p.logger.Warn(collected.Message(), map[string]any{
			"attachment_id": id,
			"errors":        collected.Errors(),
		})
	default:
		p.logger.Error("webp conversion failed", map[string]any{
			"attachment_id": id,
			"error":         err.Error(),
		})
	}
	return meta
}

// DeleteAttachment runs the delete hook, removing the WebP renditions and
// their records while the attachment metadata is still readable, then
// deletes the attachment.
func (p *Plugin) DeleteAttachment(ctx context.Context, id int64) error {
	hookErr := p.manager.Delete(ctx, id)
	if hookErr != nil {
		p.logger.Warn("webp cleanup incomplete", map[string]any{
			"attachment_id": id,
			"error":         hookErr.Error(),
		})
	}
	if err := p.library.DeleteAttachment(ctx, id); err != nil {
		return errors.Join(hookErr, fmt.Errorf("delete attachment %d: %w", id, err))
	}
	return hookErr
}

// RenderContent runs content through the installed filters.
func (p *Plugin) RenderContent(ctx context.Context, content string) string {
	for _, f := range p.filters {
		content = f.Filter(ctx, content)
	}
	return content
}
