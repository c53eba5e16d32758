// Package bulk runs the two batch commands over existing content: tagging
// post images with their attachment class, and backfilling WebP renditions
// for every image attachment.
//
// Both processors tally per-item outcomes in a metrics.Collector and never
// stop on an item failure. They stop between items when the context is
// done.
package bulk

import (
	"fmt"

	"github.com/pithecene-io/imagesources/metrics"
	"github.com/pithecene-io/imagesources/types"
)

// Result is the outcome of one bulk run.
type Result struct {
	// Snapshot holds the final counters.
	Snapshot metrics.Snapshot
	// Failures lists per-item error messages in processing order.
	Failures []string
}

// Report renders the end-of-run summary for the snapshot's command.
func Report(s metrics.Snapshot) string {
	switch s.Command {
	case types.CommandAddClass:
		return fmt.Sprintf(`
Finished Processing Images

Posts Processed  : %d
Posts Updated    : %d
Posts Skipped    : %d

Images Processed : %d
Images Updated   : %d
Images Skipped   : %d
`, s.PostsProcessed, s.PostsUpdated, s.PostsSkipped,
			s.ImagesProcessed, s.ImagesUpdated, s.ImagesSkipped)
	case types.CommandWebPConvert:
		return fmt.Sprintf(`
Total Attachments Found      : %d

Image Attachments Found      : %d
Successful Image Convertions : %d
Failed Image Conversions     : %d
`, s.AttachmentsTotal, s.ImageAttachments, s.ImagesConverted, s.ImagesFailed)
	default:
		return ""
	}
}
