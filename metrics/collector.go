// Package metrics provides per-run counters for the bulk commands.
//
// The Collector accumulates counters during a single run of add-class or
// webp-convert. Report storage outcomes are counted alongside so a run's
// summary shows whether its report was persisted.
package metrics

import (
	"sync"

	"github.com/pithecene-io/imagesources/types"
)

// Counter names as they appear in run reports.
const (
	PostsProcessed   = "posts_processed"
	PostsUpdated     = "posts_updated"
	PostsSkipped     = "posts_skipped"
	ImagesProcessed  = "images_processed"
	ImagesUpdated    = "images_updated"
	ImagesSkipped    = "images_skipped"
	AttachmentsTotal = "attachments_total"
	ImageAttachments = "image_attachments"
	ImagesConverted  = "images_converted"
	ImagesFailed     = "images_failed"

	ReportWriteSuccess = "report_write_success"
	ReportWriteFailure = "report_write_failure"
)

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Class tagging
	PostsProcessed  int64
	PostsUpdated    int64
	PostsSkipped    int64
	ImagesProcessed int64
	ImagesUpdated   int64
	ImagesSkipped   int64

	// WebP backfill
	AttachmentsTotal int64
	ImageAttachments int64
	ImagesConverted  int64
	ImagesFailed     int64

	// Report storage
	ReportWriteSuccess int64
	ReportWriteFailure int64

	// Dimensions (informational, set at construction)
	Command string
	RunID   string
}

// CounterNames returns the counters reported by command, in display order.
func CounterNames(command string) []string {
	switch command {
	case types.CommandAddClass:
		return []string{PostsProcessed, PostsUpdated, PostsSkipped, ImagesProcessed, ImagesUpdated, ImagesSkipped}
	case types.CommandWebPConvert:
		return []string{AttachmentsTotal, ImageAttachments, ImagesConverted, ImagesFailed}
	default:
		return nil
	}
}

// Counters returns the counters of the snapshot's command keyed by name.
func (s Snapshot) Counters() map[string]int64 {
	all := map[string]int64{
		PostsProcessed:   s.PostsProcessed,
		PostsUpdated:     s.PostsUpdated,
		PostsSkipped:     s.PostsSkipped,
		ImagesProcessed:  s.ImagesProcessed,
		ImagesUpdated:    s.ImagesUpdated,
		ImagesSkipped:    s.ImagesSkipped,
		AttachmentsTotal: s.AttachmentsTotal,
		ImageAttachments: s.ImageAttachments,
		ImagesConverted:  s.ImagesConverted,
		ImagesFailed:     s.ImagesFailed,
	}
	names := CounterNames(s.Command)
	if names == nil {
		return all
	}
	out := make(map[string]int64, len(names))
	for _, name := range names {
		out[name] = all[name]
	}
	return out
}

// StorageCounters returns the report storage outcomes keyed by name.
func (s Snapshot) StorageCounters() map[string]int64 {
	return map[string]int64{
		ReportWriteSuccess: s.ReportWriteSuccess,
		ReportWriteFailure: s.ReportWriteFailure,
	}
}

// Collector accumulates counters during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	postsProcessed  int64
	postsUpdated    int64
	postsSkipped    int64
	imagesProcessed int64
	imagesUpdated   int64
	imagesSkipped   int64

	attachmentsTotal int64
	imageAttachments int64
	imagesConverted  int64
	imagesFailed     int64

	reportWriteSuccess int64
	reportWriteFailure int64

	command string
	runID   string
}

// NewCollector creates a Collector for one run of command.
func NewCollector(command, runID string) *Collector {
	return &Collector{command: command, runID: runID}
}

func (c *Collector) add(counter *int64, n int64) {
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Class tagging ---

// IncPostsProcessed records a post whose images were examined.
func (c *Collector) IncPostsProcessed() {
	if c == nil {
		return
	}
	c.add(&c.postsProcessed, 1)
}

// IncPostsUpdated records a post whose rewritten content was persisted.
func (c *Collector) IncPostsUpdated() {
	if c == nil {
		return
	}
	c.add(&c.postsUpdated, 1)
}

// IncPostsSkipped records a post whose rewritten content failed to persist.
func (c *Collector) IncPostsSkipped() {
	if c == nil {
		return
	}
	c.add(&c.postsSkipped, 1)
}

// IncImagesProcessed records an examined image tag.
func (c *Collector) IncImagesProcessed() {
	if c == nil {
		return
	}
	c.add(&c.imagesProcessed, 1)
}

// IncImagesUpdated records a rewritten image tag.
func (c *Collector) IncImagesUpdated() {
	if c == nil {
		return
	}
	c.add(&c.imagesUpdated, 1)
}

// IncImagesSkipped records an image tag left as-is.
func (c *Collector) IncImagesSkipped() {
	if c == nil {
		return
	}
	c.add(&c.imagesSkipped, 1)
}

// --- WebP backfill ---

// SetAttachmentCounts records the size of the attachment candidate set and
// how many of those are images. Called once before conversion starts.
func (c *Collector) SetAttachmentCounts(total, images int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attachmentsTotal = total
	c.imageAttachments = images
	c.mu.Unlock()
}

// IncImagesConverted records an attachment converted without errors.
func (c *Collector) IncImagesConverted() {
	if c == nil {
		return
	}
	c.add(&c.imagesConverted, 1)
}

// IncImagesFailed records an attachment with at least one failed size.
func (c *Collector) IncImagesFailed() {
	if c == nil {
		return
	}
	c.add(&c.imagesFailed, 1)
}

// --- Report storage ---

// IncReportWriteSuccess records a persisted run report.
func (c *Collector) IncReportWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.reportWriteSuccess, 1)
}

// IncReportWriteFailure records a run report that could not be persisted.
func (c *Collector) IncReportWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.reportWriteFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		PostsProcessed:  c.postsProcessed,
		PostsUpdated:    c.postsUpdated,
		PostsSkipped:    c.postsSkipped,
		ImagesProcessed: c.imagesProcessed,
		ImagesUpdated:   c.imagesUpdated,
		ImagesSkipped:   c.imagesSkipped,

		AttachmentsTotal: c.attachmentsTotal,
		ImageAttachments: c.imageAttachments,
		ImagesConverted:  c.imagesConverted,
		ImagesFailed:     c.imagesFailed,

		ReportWriteSuccess: c.reportWriteSuccess,
		ReportWriteFailure: c.reportWriteFailure,

		Command: c.command,
		RunID:   c.runID,
	}
}
