package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pithecene-io/imagesources/convert"
	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/metrics"
	"github.com/pithecene-io/imagesources/types"
)

// AttachmentStore lists attachments.
type AttachmentStore interface {
	Attachments(ctx context.Context) ([]types.Attachment, error)
}

// Converter regenerates the WebP family of one attachment from its stored
// metadata when meta is nil.
type Converter interface {
	Convert(ctx context.Context, id int64, meta *types.AttachmentMetadata) error
}

// WebPBackfillConfig configures a WebPBackfill.
type WebPBackfillConfig struct {
	Attachments AttachmentStore
	Converter   Converter
	RunID       string
	// Progress receives a progress line. May be nil.
	Progress io.Writer
	Logger   *log.Logger
}

// WebPBackfill converts every existing image attachment to WebP.
type WebPBackfill struct {
	cfg WebPBackfillConfig
}

// NewWebPBackfill creates a WebPBackfill.
func NewWebPBackfill(cfg WebPBackfillConfig) *WebPBackfill {
	return &WebPBackfill{cfg: cfg}
}

// Run converts every image attachment. An attachment with any failed size
// counts as failed; its error strings are logged at debug level and
// returned as failures.
func (b *WebPBackfill) Run(ctx context.Context) (Result, error) {
	collector := metrics.NewCollector(types.CommandWebPConvert, b.cfg.RunID)
	var failures []string

	attachments, err := b.cfg.Attachments.Attachments(ctx)
	if err != nil {
		return Result{Snapshot: collector.Snapshot()}, fmt.Errorf("query attachments: %w", err)
	}

	images := make([]types.Attachment, 0, len(attachments))
	for _, a := range attachments {
		if a.IsImage() {
			images = append(images, a)
		}
	}
	collector.SetAttachmentCounts(int64(len(attachments)), int64(len(images)))

	b.cfg.Logger.Info("converting image attachments", map[string]any{
		"attachments": len(attachments),
		"images":      len(images),
	})

	bar := newProgress(b.cfg.Progress, "Converting images...", len(images))
	defer bar.done()

	for _, a := range images {
		if err := ctx.Err(); err != nil {
			return Result{Snapshot: collector.Snapshot(), Failures: failures}, err
		}

		err := b.cfg.Converter.Convert(ctx, a.ID, nil)

		var collected *convert.Error
		switch {
		case err == nil:
			collector.IncImagesConverted()
		case errors.As(err, &collected):
			collector.IncImagesFailed()
			b.cfg.Logger.Debug(collected.Error(), map[string]any{"attachment_id": a.ID})
			for _, msg := range collected.Errors() {
				failures = append(failures, fmt.Sprintf("attachment %d: %s", a.ID, msg))
			}
		default:
			collector.IncImagesFailed()
			b.cfg.Logger.Warn("attachment conversion failed", map[string]any{
				"attachment_id": a.ID,
				"error":         err.Error(),
			})
			failures = append(failures, fmt.Sprintf("attachment %d: %v", a.ID, err))
		}

		bar.tick()
	}

	return Result{Snapshot: collector.Snapshot(), Failures: failures}, nil
}
