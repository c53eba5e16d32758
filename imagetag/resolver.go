package imagetag

import (
	"context"

	"github.com/pithecene-io/imagesources/log"
)

// URLLookup maps an attachment URL to its ID. A miss returns 0 and no error.
type URLLookup interface {
	AttachmentIDByURL(ctx context.Context, url string) (int64, error)
}

// Resolver resolves tag sources to attachment IDs.
type Resolver struct {
	lookup URLLookup
	logger *log.Logger
}

// NewResolver creates a Resolver backed by lookup. logger may be nil.
func NewResolver(lookup URLLookup, logger *log.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns the attachment ID for src. Empty input, lookup errors and
// misses all report ok == false.
func (r *Resolver) Resolve(ctx context.Context, src string) (id int64, ok bool) {
	if src == "" || r == nil || r.lookup == nil {
		return 0, false
	}

	id, err := r.lookup.AttachmentIDByURL(ctx, src)
	if err != nil {
		r.logger.Debug("attachment lookup failed", map[string]any{
			"src":   src,
			"error": err.Error(),
		})
		return 0, false
	}
	if id <= 0 {
		return 0, false
	}
	return id, true
}
