package medialib

import (
	"fmt"
	"html"
	"math"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pithecene-io/imagesources/types"
)

// MaxSrcsetWidth is the widest candidate listed in a srcset, unless that
// candidate is the src itself.
const MaxSrcsetWidth = 2048

var (
	editHashPattern = regexp.MustCompile(`-e[0-9]{13}`)
	imageSrcPattern = regexp.MustCompile(`\ssrc="([^"]+)"`)
	widthPattern    = regexp.MustCompile(` width="([0-9]+)"`)
	heightPattern   = regexp.MustCompile(` height="([0-9]+)"`)
	imgOpenPattern  = regexp.MustCompile(`<img ([^>]+?)[/ ]*>`)
)

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// EditHash returns the "-e" plus 13 digit edited-image marker in s, or "".
func EditHash(s string) string {
	return editHashPattern.FindString(s)
}

// ImageSrc returns the src attribute of tag without its query string.
func ImageSrc(tag string) string {
	m := imageSrcPattern.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	src, _, _ := strings.Cut(m[1], "?")
	return src
}

// TagSize returns the width and height attributes of tag. Missing
// attributes are zero.
func TagSize(tag string) Size {
	var s Size
	if m := widthPattern.FindStringSubmatch(tag); m != nil {
		s.Width, _ = strconv.Atoi(m[1])
	}
	if m := heightPattern.FindStringSubmatch(tag); m != nil {
		s.Height, _ = strconv.Atoi(m[1])
	}
	return s
}

// SizeForFile returns the dimensions recorded in meta for the file named
// filename, checking the full-size file first.
func SizeForFile(filename string, meta *types.AttachmentMetadata) (Size, bool) {
	if meta == nil {
		return Size{}, false
	}
	if filename == path.Base(meta.File) {
		return Size{Width: meta.Width, Height: meta.Height}, true
	}
	for _, name := range sizeNames(meta) {
		if size := meta.Sizes[name]; filename == size.File {
			return Size{Width: size.Width, Height: size.Height}, true
		}
	}
	return Size{}, false
}

// ReplaceOpenTag replaces each <img ...> opening tag in image with the
// result of build, which receives the tag's attribute text without any
// trailing " /".
func ReplaceOpenTag(image string, build func(attrs string) string) string {
	return imgOpenPattern.ReplaceAllStringFunc(image, func(tag string) string {
		return build(imgOpenPattern.FindStringSubmatch(tag)[1])
	})
}

// Calculator computes responsive image attributes against an uploads
// location.
type Calculator struct {
	Uploads Uploads
}

// NewCalculator creates a Calculator for uploads.
func NewCalculator(uploads Uploads) *Calculator {
	return &Calculator{Uploads: uploads}
}

type source struct {
	url   string
	width int
}

// Srcset returns the srcset of an image displayed at size whose src is
// src, or "" when fewer than two candidates match or src matches none of
// the files in meta.
func (c *Calculator) Srcset(size Size, src string, meta *types.AttachmentMetadata) string {
	if meta == nil || size.Width < 1 || len(meta.Sizes) == 0 {
		return ""
	}

	candidates := make([]types.SizeMeta, 0, len(meta.Sizes)+1)
	for _, name := range sizeNames(meta) {
		candidates = append(candidates, meta.Sizes[name])
	}
	candidates = append(candidates, types.SizeMeta{
		File:   path.Base(meta.File),
		Width:  meta.Width,
		Height: meta.Height,
	})

	dirname := path.Dir(meta.File)
	if dirname == "." || dirname == "/" {
		dirname = ""
	} else {
		dirname += "/"
	}
	baseURL := c.baseURL(src) + dirname

	editHash := EditHash(path.Base(src))

	var (
		order      []int
		byWidth    = make(map[int]source)
		srcMatched bool
	)
	for _, candidate := range candidates {
		if candidate.File == "" {
			continue
		}
		isSrc := false
		if !srcMatched && strings.Contains(src, dirname+candidate.File) {
			srcMatched = true
			isSrc = true
		}

		if editHash != "" && !strings.Contains(candidate.File, editHash) {
			continue
		}
		if candidate.Width > MaxSrcsetWidth && !isSrc {
			continue
		}
		if !MatchesRatio(size.Width, size.Height, candidate.Width, candidate.Height) {
			continue
		}

		// Candidates are keyed by width. The src always leads the list.
		if isSrc {
			order = append([]int{candidate.Width}, remove(order, candidate.Width)...)
		} else if _, seen := byWidth[candidate.Width]; !seen {
			order = append(order, candidate.Width)
		}
		byWidth[candidate.Width] = source{url: baseURL + candidate.File, width: candidate.Width}
	}

	if !srcMatched || len(order) < 2 {
		return ""
	}

	parts := make([]string, 0, len(order))
	for _, w := range order {
		s := byWidth[w]
		parts = append(parts, fmt.Sprintf("%s %dw", strings.ReplaceAll(s.url, " ", "%20"), s.width))
	}
	return strings.Join(parts, ", ")
}

// Sizes returns the sizes attribute for an image displayed at size, or "".
func (c *Calculator) Sizes(size Size) string {
	if size.Width < 1 {
		return ""
	}
	return fmt.Sprintf("(max-width: %dpx) 100vw, %dpx", size.Width, size.Width)
}

// AddSrcsetAndSizes adds srcset and sizes attributes to an <img> tag using
// the attachment metadata meta. The tag is returned unchanged when the
// attributes cannot be computed.
func (c *Calculator) AddSrcsetAndSizes(image string, meta *types.AttachmentMetadata) string {
	if meta == nil || len(meta.Sizes) == 0 {
		return image
	}

	src := ImageSrc(image)
	if src == "" {
		return image
	}

	// The image was inserted before an in-place edit.
	if hash := EditHash(meta.File); hash != "" && !strings.Contains(path.Base(src), hash) {
		return image
	}

	size := TagSize(image)
	if size.Width == 0 || size.Height == 0 {
		if s, ok := SizeForFile(path.Base(src), meta); ok {
			size = s
		}
	}
	if size.Width == 0 || size.Height == 0 {
		return image
	}

	srcset := c.Srcset(size, src, meta)
	if srcset == "" {
		return image
	}

	attr := fmt.Sprintf(` srcset="%s"`, html.EscapeString(srcset))
	if !strings.Contains(image, " sizes=") {
		sizes := c.Sizes(size)
		if sizes == "" {
			return image
		}
		attr += fmt.Sprintf(` sizes="%s"`, html.EscapeString(sizes))
	}

	return ReplaceOpenTag(image, func(attrs string) string {
		return "<img " + attrs + attr + " />"
	})
}

// baseURL returns the uploads URL, upgraded to https when src is https on
// the same host.
func (c *Calculator) baseURL(src string) string {
	base := c.Uploads.BaseURL()
	if rest, ok := strings.CutPrefix(base, "http://"); ok && strings.HasPrefix(src, "https://") {
		host, _, _ := strings.Cut(rest, "/")
		if strings.HasPrefix(strings.TrimPrefix(src, "https://"), host+"/") {
			return "https://" + rest
		}
	}
	return base
}

// MatchesRatio reports whether two sizes share an aspect ratio, allowing
// 1px of rounding after scaling the larger down to the smaller width.
func MatchesRatio(sourceWidth, sourceHeight, targetWidth, targetHeight int) bool {
	var constrained, expected Size
	if sourceWidth > targetWidth {
		constrained = constrainToWidth(sourceWidth, sourceHeight, targetWidth)
		expected = Size{Width: targetWidth, Height: targetHeight}
	} else {
		constrained = constrainToWidth(targetWidth, targetHeight, sourceWidth)
		expected = Size{Width: sourceWidth, Height: sourceHeight}
	}
	return abs(constrained.Width-expected.Width) <= 1 && abs(constrained.Height-expected.Height) <= 1
}

// constrainToWidth scales width x height down so the width fits maxWidth.
func constrainToWidth(width, height, maxWidth int) Size {
	if maxWidth <= 0 || width <= 0 || width <= maxWidth {
		return Size{Width: width, Height: height}
	}
	ratio := float64(maxWidth) / float64(width)
	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))
	if w == maxWidth-1 {
		w = maxWidth
	}
	return Size{Width: max(w, 1), Height: max(h, 1)}
}

func sizeNames(meta *types.AttachmentMetadata) []string {
	names := make([]string, 0, len(meta.Sizes))
	for name := range meta.Sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func remove(order []int, w int) []int {
	out := order[:0:0]
	for _, v := range order {
		if v != w {
			out = append(out, v)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
