package imagetag

import (
	"context"
	"strconv"
	"strings"
)

// ClassPrefix prefixes the attachment ID in the class added to tags.
const ClassPrefix = "wp-image-"

// Tag is one <img> tag together with its resolved attachment.
type Tag struct {
	original     string
	parsed       Parsed
	attachmentID int64
}

// New parses tag and resolves its source through resolver.
func New(ctx context.Context, tag string, resolver *Resolver) *Tag {
	t := &Tag{original: tag, parsed: Parse(tag)}
	if id, ok := resolver.Resolve(ctx, t.parsed.Src); ok {
		t.attachmentID = id
	}
	return t
}

// Original returns the tag text as given.
func (t *Tag) Original() string {
	return t.original
}

// AttachmentID returns the resolved attachment ID, or 0.
func (t *Tag) AttachmentID() int64 {
	return t.attachmentID
}

// CanUpdate reports whether an attachment was resolved. Callers must leave
// tags that cannot be updated untouched.
func (t *Tag) CanUpdate() bool {
	return t.attachmentID > 0
}

// Modified returns the tag with the attachment class merged into its class
// list. An existing class value is replaced in place; otherwise a class
// attribute is inserted right after "<img".
func (t *Tag) Modified() string {
	classes := make([]string, 0, len(t.parsed.Classes)+1)
	classes = append(classes, t.parsed.Classes...)
	if t.attachmentID > 0 {
		classes = append(classes, ClassPrefix+strconv.FormatInt(t.attachmentID, 10))
	}
	joined := strings.Join(unique(classes), " ")

	if t.parsed.HasClass() {
		return t.original[:t.parsed.ClassStart] + joined + t.original[t.parsed.ClassEnd:]
	}
	if joined == "" {
		return t.original
	}
	return strings.Replace(t.original, "<img ", `<img class="`+joined+`" `, 1)
}

// unique drops repeated tokens, keeping the first occurrence.
func unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
