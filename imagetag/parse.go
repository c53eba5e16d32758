// Package imagetag parses single <img> tags and rewrites them to carry the
// wp-image-{id} class of the attachment their src resolves to.
//
// Tags are handled with pattern matching, not an HTML parser: a tag may be
// malformed or partial and a miss simply yields empty values.
package imagetag

import (
	"regexp"
	"strings"
)

var (
	// data-class and data-src must not match.
	classPattern = regexp.MustCompile(`(?:^|\s)class="([^"]*)"`)
	srcPattern   = regexp.MustCompile(`(?:^|\s)src="([^"]*)"`)
)

// Parsed is the extraction result for one tag.
type Parsed struct {
	// Class is the raw value of the first class attribute.
	Class string
	// ClassStart and ClassEnd delimit Class inside the tag.
	// Both are -1 when the tag has no class attribute.
	ClassStart int
	ClassEnd   int
	// Classes holds the whitespace-separated tokens of Class.
	Classes []string
	// Src is the src attribute value, with "//" normalized to "https://".
	Src string
}

// HasClass reports whether the tag carries a class attribute, even an empty one.
func (p Parsed) HasClass() bool {
	return p.ClassStart >= 0
}

// Parse extracts the class and src attributes of tag.
func Parse(tag string) Parsed {
	p := Parsed{ClassStart: -1, ClassEnd: -1}

	if loc := classPattern.FindStringSubmatchIndex(tag); loc != nil {
		p.ClassStart, p.ClassEnd = loc[2], loc[3]
		p.Class = tag[loc[2]:loc[3]]
		p.Classes = strings.Fields(p.Class)
	}

	if m := srcPattern.FindStringSubmatch(tag); m != nil {
		p.Src = m[1]
		if strings.HasPrefix(p.Src, "//") {
			p.Src = "https:" + p.Src
		}
	}

	return p
}
