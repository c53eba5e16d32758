package responsive

import (
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/pithecene-io/imagesources/convert"
	"github.com/pithecene-io/imagesources/medialib"
	"github.com/pithecene-io/imagesources/types"
)

var sizesAttrPattern = regexp.MustCompile(` sizes="([^"]*)"`)

// AddWebPSource returns a <source> element pointing at the WebP renditions
// of image, or image unchanged when no WebP srcset can be computed.
//
// An existing sizes attribute on image is reused for the source.
func AddWebPSource(image string, meta *types.WebPMetadata, calc *medialib.Calculator) string {
	if meta == nil || len(meta.Sizes) == 0 {
		return image
	}

	src := medialib.ImageSrc(image)
	if src == "" {
		return image
	}

	// The metadata predates an in-place edit of the image.
	if hash := medialib.EditHash(path.Base(src)); hash != "" && !strings.Contains(meta.File, hash) {
		return image
	}

	webpSrc := convert.DestinationPath(src)

	size := medialib.TagSize(image)
	if size.Width == 0 || size.Height == 0 {
		if s, ok := medialib.SizeForFile(path.Base(webpSrc), meta); ok {
			size = s
		}
	}
	if size.Width == 0 || size.Height == 0 {
		return image
	}

	srcset := calc.Srcset(size, webpSrc, meta)
	if srcset == "" {
		return image
	}

	var sizes string
	if m := sizesAttrPattern.FindStringSubmatch(image); m != nil {
		sizes = m[1]
	} else {
		sizes = html.EscapeString(calc.Sizes(size))
	}
	if sizes == "" {
		return image
	}

	element := fmt.Sprintf(`<source srcset="%s" sizes="%s" />`, html.EscapeString(srcset), sizes)
	return medialib.ReplaceOpenTag(image, func(string) string { return element })
}
