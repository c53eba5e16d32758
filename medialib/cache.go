package medialib

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pithecene-io/imagesources/types"
)

const defaultCacheSize = 1024

// Cache is a Store with LRU caches in front of attachment and WebP
// metadata. Absent metadata is cached too. Writes made through the cache
// invalidate the affected entry.
type Cache struct {
	*Store

	attachments *lru.Cache[int64, *types.AttachmentMetadata]
	webp        *lru.Cache[int64, *types.WebPMetadata]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps store. A non-positive size uses the default.
func NewCache(store *Store, size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	attachments, err := lru.New[int64, *types.AttachmentMetadata](size)
	if err != nil {
		return nil, err
	}
	webp, err := lru.New[int64, *types.WebPMetadata](size)
	if err != nil {
		return nil, err
	}
	return &Cache{Store: store, attachments: attachments, webp: webp}, nil
}

// CacheStats reports lookup counts since the cache was created.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// AttachmentMetadata returns the cached size metadata, loading it on a miss.
func (c *Cache) AttachmentMetadata(ctx context.Context, id int64) (*types.AttachmentMetadata, error) {
	return c.lookup(ctx, c.attachments, id, c.Store.AttachmentMetadata)
}

// WebPMetadata returns the cached WebP metadata, loading it on a miss.
func (c *Cache) WebPMetadata(ctx context.Context, id int64) (*types.WebPMetadata, error) {
	return c.lookup(ctx, c.webp, id, c.Store.WebPMetadata)
}

// PrimeAttachmentCaches loads both metadata kinds for every uncached ID,
// one batch query per kind.
func (c *Cache) PrimeAttachmentCaches(ctx context.Context, ids []int64) error {
	if err := c.prime(ctx, c.attachments, ids, c.Store.AttachmentMetadataBatch); err != nil {
		return err
	}
	return c.prime(ctx, c.webp, ids, c.Store.WebPMetadataBatch)
}

// UpdateAttachmentMetadata writes through and invalidates the entry.
func (c *Cache) UpdateAttachmentMetadata(ctx context.Context, id int64, meta *types.AttachmentMetadata) error {
	defer c.attachments.Remove(id)
	return c.Store.UpdateAttachmentMetadata(ctx, id, meta)
}

// UpdateWebPMetadata writes through and invalidates the entry.
func (c *Cache) UpdateWebPMetadata(ctx context.Context, id int64, meta *types.WebPMetadata) error {
	defer c.webp.Remove(id)
	return c.Store.UpdateWebPMetadata(ctx, id, meta)
}

// DeleteWebPMetadata writes through and invalidates the entry.
func (c *Cache) DeleteWebPMetadata(ctx context.Context, id int64) error {
	defer c.webp.Remove(id)
	return c.Store.DeleteWebPMetadata(ctx, id)
}

// DeleteAttachment writes through and invalidates both entries.
func (c *Cache) DeleteAttachment(ctx context.Context, id int64) error {
	defer c.attachments.Remove(id)
	defer c.webp.Remove(id)
	return c.Store.DeleteAttachment(ctx, id)
}

func (c *Cache) lookup(
	ctx context.Context,
	cache *lru.Cache[int64, *types.AttachmentMetadata],
	id int64,
	load func(context.Context, int64) (*types.AttachmentMetadata, error),
) (*types.AttachmentMetadata, error) {
	if meta, ok := cache.Get(id); ok {
		c.hits.Add(1)
		return meta.Clone(), nil
	}
	c.misses.Add(1)

	meta, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	cache.Add(id, meta)
	return meta.Clone(), nil
}

func (c *Cache) prime(
	ctx context.Context,
	cache *lru.Cache[int64, *types.AttachmentMetadata],
	ids []int64,
	load func(context.Context, []int64) (map[int64]*types.AttachmentMetadata, error),
) error {
	missing := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !cache.Contains(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	loaded, err := load(ctx, missing)
	if err != nil {
		return err
	}
	for id, meta := range loaded {
		cache.Add(id, meta)
	}
	return nil
}
