// Package types defines the shared domain types for imagesources.
//
//nolint:revive // types is a common Go package naming convention
package types

import "strings"

// WebPMimeType is the MIME type recorded for every derived WebP size.
const WebPMimeType = "image/webp"

// PostTypeAttachment is the post type of media library attachments.
const PostTypeAttachment = "attachment"

// SizeMeta is one entry of a metadata size table.
// File is a basename living in the same directory as the primary file.
type SizeMeta struct {
	File     string `json:"file" msgpack:"file" yaml:"file"`
	Width    int    `json:"width" msgpack:"width" yaml:"width"`
	Height   int    `json:"height" msgpack:"height" yaml:"height"`
	MimeType string `json:"mime-type" msgpack:"mime-type" yaml:"mime-type"`
}

// AttachmentMetadata is the media library's record of an image attachment
// and its generated sizes.
type AttachmentMetadata struct {
	// Width and Height are the dimensions of the full-size file.
	Width  int `json:"width" msgpack:"width" yaml:"width"`
	Height int `json:"height" msgpack:"height" yaml:"height"`
	// File is the upload-relative path of the full-size file (e.g. "2017/10/a.png").
	File string `json:"file" msgpack:"file" yaml:"file"`
	// Sizes maps a registered size name to its derived file.
	Sizes map[string]SizeMeta `json:"sizes" msgpack:"sizes" yaml:"sizes"`
}

// WebPMetadata mirrors AttachmentMetadata for the derived WebP family.
// File names the WebP rendition of the full-size file. Sizes only holds
// named sizes that were converted; the full size is never a Sizes entry.
type WebPMetadata = AttachmentMetadata

// Clone returns a deep copy of m. A nil receiver returns nil.
func (m *AttachmentMetadata) Clone() *AttachmentMetadata {
	if m == nil {
		return nil
	}
	out := *m
	if m.Sizes != nil {
		out.Sizes = make(map[string]SizeMeta, len(m.Sizes))
		for name, size := range m.Sizes {
			out.Sizes[name] = size
		}
	}
	return &out
}

// Attachment is a media library record for one uploaded file.
type Attachment struct {
	ID       int64
	MimeType string
	// AttachedFile is the upload-relative path of the primary file.
	AttachedFile string
}

// IsImage reports whether the attachment holds an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// Post is a content record whose body may contain image tags.
type Post struct {
	ID      int64
	Type    string
	Status  string
	Content string
}
