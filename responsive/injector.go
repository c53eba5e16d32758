// Package responsive adds srcset and sizes attributes to the attachment
// images of rendered content and, when WebP renditions exist, wraps them
// in a <picture> element with a WebP <source>.
package responsive

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/medialib"
	"github.com/pithecene-io/imagesources/types"
)

var (
	imgTagPattern  = regexp.MustCompile(`<img [^>]+>`)
	wpImagePattern = regexp.MustCompile(`(?i)wp-image-([0-9]+)`)
	picturePattern = regexp.MustCompile(`(?s)<picture\b[^>]*>.*?</picture>`)
)

// Library is the metadata the injector reads.
type Library interface {
	AttachmentMetadata(ctx context.Context, id int64) (*types.AttachmentMetadata, error)
	WebPMetadata(ctx context.Context, id int64) (*types.WebPMetadata, error)
	// PrimeAttachmentCaches loads metadata for ids ahead of per-tag lookups.
	PrimeAttachmentCaches(ctx context.Context, ids []int64) error
}

// Injector is a content filter.
type Injector struct {
	library Library
	calc    *medialib.Calculator
	webp    bool
	logger  *log.Logger
}

// NewInjector creates an Injector. With webp false it only adds srcset and
// sizes, like the stock media library filter.
func NewInjector(library Library, calc *medialib.Calculator, webp bool, logger *log.Logger) *Injector {
	return &Injector{library: library, calc: calc, webp: webp, logger: logger}
}

type candidate struct {
	tag string
	id  int64
}

// Filter returns content with every qualifying image tag replaced. A tag
// qualifies when it carries a wp-image-{id} class, has no srcset and is
// not already inside a <picture>. Identical tags are processed once and
// replaced together.
func (in *Injector) Filter(ctx context.Context, content string) string {
	candidates := in.candidates(content)
	if len(candidates) == 0 {
		return content
	}

	ids := distinctIDs(candidates)
	if len(ids) > 1 {
		if err := in.library.PrimeAttachmentCaches(ctx, ids); err != nil {
			in.logger.Debug("prime attachment caches failed", map[string]any{
				"ids":   len(ids),
				"error": err.Error(),
			})
		}
	}

	for _, c := range candidates {
		if replaced := in.render(ctx, c); replaced != c.tag {
			content = strings.ReplaceAll(content, c.tag, replaced)
		}
	}
	return content
}

func (in *Injector) candidates(content string) []candidate {
	pictures := picturePattern.FindAllString(content, -1)

	var out []candidate
	seen := make(map[string]struct{})
	for _, tag := range imgTagPattern.FindAllString(content, -1) {
		if strings.Contains(tag, " srcset=") {
			continue
		}
		m := wpImagePattern.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		if insidePicture(tag, pictures) {
			continue
		}
		out = append(out, candidate{tag: tag, id: id})
	}
	return out
}

// render returns the replacement markup for one tag.
func (in *Injector) render(ctx context.Context, c candidate) string {
	meta, err := in.library.AttachmentMetadata(ctx, c.id)
	if err != nil {
		in.logger.Debug("attachment metadata unavailable", map[string]any{
			"attachment_id": c.id,
			"error":         err.Error(),
		})
		return c.tag
	}
	image := in.calc.AddSrcsetAndSizes(c.tag, meta)

	if !in.webp {
		return image
	}

	webpMeta, err := in.library.WebPMetadata(ctx, c.id)
	if err != nil {
		in.logger.Debug("webp metadata unavailable", map[string]any{
			"attachment_id": c.id,
			"error":         err.Error(),
		})
		return image
	}
	if webpMeta == nil {
		return image
	}

	source := AddWebPSource(c.tag, webpMeta, in.calc)
	if source == "" || source == c.tag {
		return image
	}
	return "<picture>" + source + image + "</picture>"
}

func insidePicture(tag string, pictures []string) bool {
	for _, p := range pictures {
		if strings.Contains(p, tag) {
			return true
		}
	}
	return false
}

func distinctIDs(candidates []candidate) []int64 {
	seen := make(map[int64]struct{}, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.id]; ok {
			continue
		}
		seen[c.id] = struct{}{}
		ids = append(ids, c.id)
	}
	return ids
}
