package bulk

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pithecene-io/imagesources/imagetag"
	"github.com/pithecene-io/imagesources/log"
	"github.com/pithecene-io/imagesources/metrics"
	"github.com/pithecene-io/imagesources/types"
)

var imgTagPattern = regexp.MustCompile(`<img [^>]+>`)

// DefaultPostTypes are tagged when no post types are configured.
var DefaultPostTypes = []string{"post", "page"}

// PostStore is the post surface the class tagger reads and writes.
type PostStore interface {
	// PostsContaining returns posts of the given types, any status, whose
	// content contains needle.
	PostsContaining(ctx context.Context, postTypes []string, needle string) ([]types.Post, error)
	UpdatePostContent(ctx context.Context, id int64, content string) error
}

// ClassTaggerConfig configures a ClassTagger.
type ClassTaggerConfig struct {
	Posts    PostStore
	Resolver *imagetag.Resolver
	// PostTypes defaults to DefaultPostTypes.
	PostTypes []string
	RunID     string
	// Progress receives a progress line. May be nil.
	Progress io.Writer
	Logger   *log.Logger
}

// ClassTagger adds the wp-image-{id} class to every resolvable image in
// existing post content.
type ClassTagger struct {
	cfg ClassTaggerConfig
}

// NewClassTagger creates a ClassTagger.
func NewClassTagger(cfg ClassTaggerConfig) *ClassTagger {
	if len(cfg.PostTypes) == 0 {
		cfg.PostTypes = DefaultPostTypes
	}
	return &ClassTagger{cfg: cfg}
}

// Run tags every candidate post. Content is only written back when it
// changed; a failed write counts the post as skipped.
func (t *ClassTagger) Run(ctx context.Context) (Result, error) {
	collector := metrics.NewCollector(types.CommandAddClass, t.cfg.RunID)
	var failures []string

	posts, err := t.cfg.Posts.PostsContaining(ctx, t.cfg.PostTypes, "<img")
	if err != nil {
		return Result{Snapshot: collector.Snapshot()}, fmt.Errorf("query posts: %w", err)
	}

	t.cfg.Logger.Info("tagging post images", map[string]any{
		"posts":      len(posts),
		"post_types": t.cfg.PostTypes,
	})

	bar := newProgress(t.cfg.Progress, "Processing post images...", len(posts))
	defer bar.done()

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return Result{Snapshot: collector.Snapshot(), Failures: failures}, err
		}
		collector.IncPostsProcessed()

		content := t.tagImages(ctx, post.Content, collector)
		if content != post.Content {
			if err := t.cfg.Posts.UpdatePostContent(ctx, post.ID, content); err != nil {
				collector.IncPostsSkipped()
				failures = append(failures, fmt.Sprintf("post %d: %v", post.ID, err))
				t.cfg.Logger.Warn("post update failed", map[string]any{
					"post_id": post.ID,
					"error":   err.Error(),
				})
			} else {
				collector.IncPostsUpdated()
			}
		}

		bar.tick()
	}

	return Result{Snapshot: collector.Snapshot(), Failures: failures}, nil
}

func (t *ClassTagger) tagImages(ctx context.Context, content string, collector *metrics.Collector) string {
	out := content
	for _, image := range imgTagPattern.FindAllString(content, -1) {
		collector.IncImagesProcessed()

		tag := imagetag.New(ctx, image, t.cfg.Resolver)
		if !tag.CanUpdate() {
			collector.IncImagesSkipped()
			continue
		}

		modified := tag.Modified()
		if modified == image {
			collector.IncImagesSkipped()
			continue
		}
		out = strings.ReplaceAll(out, image, modified)
		collector.IncImagesUpdated()
	}
	return out
}
