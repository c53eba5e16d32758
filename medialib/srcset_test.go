package medialib

import (
	"strings"
	"testing"

	"github.com/pithecene-io/imagesources/types"
)

const testBase = "http://site/wp-content/uploads/2024/05/"

func testCalculator() *Calculator {
	return NewCalculator(Uploads{Dir: "/srv/uploads", URL: "http://site/wp-content/uploads"})
}

func testMetadata() *types.AttachmentMetadata {
	return &types.AttachmentMetadata{
		Width:  1200,
		Height: 900,
		File:   "2024/05/a.jpg",
		Sizes: map[string]types.SizeMeta{
			"thumbnail": {File: "a-150x150.jpg", Width: 150, Height: 150, MimeType: "image/jpeg"},
			"medium":    {File: "a-300x225.jpg", Width: 300, Height: 225, MimeType: "image/jpeg"},
			"large":     {File: "a-1024x768.jpg", Width: 1024, Height: 768, MimeType: "image/jpeg"},
		},
	}
}

func TestMatchesRatio(t *testing.T) {
	tests := []struct {
		name   string
		sw, sh int
		tw, th int
		want   bool
	}{
		{"same size", 300, 225, 300, 225, true},
		{"scaled down", 1200, 900, 300, 225, true},
		{"scaled up", 300, 225, 1024, 768, true},
		{"within a pixel", 1200, 900, 300, 226, true},
		{"square vs landscape", 300, 225, 150, 150, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesRatio(tt.sw, tt.sh, tt.tw, tt.th); got != tt.want {
				t.Errorf("MatchesRatio(%d,%d,%d,%d) = %v, want %v", tt.sw, tt.sh, tt.tw, tt.th, got, tt.want)
			}
		})
	}
}

func TestCalculator_Srcset(t *testing.T) {
	c := testCalculator()
	got := c.Srcset(Size{Width: 300, Height: 225}, testBase+"a-300x225.jpg", testMetadata())

	want := testBase + "a-300x225.jpg 300w, " +
		testBase + "a-1024x768.jpg 1024w, " +
		testBase + "a.jpg 1200w"
	if got != want {
		t.Errorf("Srcset() =\n%s\nwant\n%s", got, want)
	}
}

func TestCalculator_SrcsetRequiresMatchingSrc(t *testing.T) {
	c := testCalculator()
	if got := c.Srcset(Size{Width: 300, Height: 225}, "http://site/other/b.jpg", testMetadata()); got != "" {
		t.Errorf("Srcset() = %q, want empty for unknown src", got)
	}
}

func TestCalculator_SrcsetNeedsTwoCandidates(t *testing.T) {
	meta := &types.AttachmentMetadata{
		Width: 150, Height: 150, File: "2024/05/sq.jpg",
		Sizes: map[string]types.SizeMeta{
			"medium": {File: "sq-300x200.jpg", Width: 300, Height: 200},
		},
	}
	if got := testCalculator().Srcset(Size{Width: 150, Height: 150}, testBase+"sq.jpg", meta); got != "" {
		t.Errorf("Srcset() = %q, want empty with a single candidate", got)
	}
}

func TestCalculator_SrcsetSkipsOversizedCandidates(t *testing.T) {
	meta := testMetadata()
	meta.Sizes["huge"] = types.SizeMeta{File: "a-4000x3000.jpg", Width: 4000, Height: 3000}

	got := testCalculator().Srcset(Size{Width: 300, Height: 225}, testBase+"a-300x225.jpg", meta)
	if strings.Contains(got, "4000w") {
		t.Errorf("Srcset() = %q, should not list candidates wider than %d", got, MaxSrcsetWidth)
	}
}

func TestCalculator_SrcsetUpgradesScheme(t *testing.T) {
	got := testCalculator().Srcset(Size{Width: 300, Height: 225},
		"https://site/wp-content/uploads/2024/05/a-300x225.jpg", testMetadata())
	if !strings.HasPrefix(got, "https://site/wp-content/uploads/2024/05/a-300x225.jpg 300w") {
		t.Errorf("Srcset() = %q, want https candidates", got)
	}
}

func TestCalculator_Sizes(t *testing.T) {
	c := testCalculator()
	if got := c.Sizes(Size{Width: 300, Height: 225}); got != "(max-width: 300px) 100vw, 300px" {
		t.Errorf("Sizes() = %q", got)
	}
	if got := c.Sizes(Size{}); got != "" {
		t.Errorf("Sizes(zero) = %q, want empty", got)
	}
}

func TestCalculator_AddSrcsetAndSizes(t *testing.T) {
	c := testCalculator()
	image := `<img class="wp-image-7" src="` + testBase + `a-300x225.jpg" width="300" height="225" />`

	got := c.AddSrcsetAndSizes(image, testMetadata())

	if !strings.HasPrefix(got, `<img class="wp-image-7" src="`+testBase+`a-300x225.jpg" width="300" height="225" srcset="`) {
		t.Errorf("attributes not appended in place: %s", got)
	}
	if !strings.Contains(got, `sizes="(max-width: 300px) 100vw, 300px"`) {
		t.Errorf("sizes missing: %s", got)
	}
	if !strings.HasSuffix(got, ` />`) || strings.Count(got, "/>") != 1 {
		t.Errorf("tag not closed once: %s", got)
	}
}

func TestCalculator_AddSrcsetAndSizesFallsBackToMetadataDimensions(t *testing.T) {
	image := `<img src="` + testBase + `a-1024x768.jpg">`
	got := testCalculator().AddSrcsetAndSizes(image, testMetadata())
	if !strings.Contains(got, `sizes="(max-width: 1024px) 100vw, 1024px"`) {
		t.Errorf("expected dimensions from metadata: %s", got)
	}
}

func TestCalculator_AddSrcsetAndSizesKeepsExistingSizes(t *testing.T) {
	image := `<img src="` + testBase + `a-300x225.jpg" width="300" height="225" sizes="50vw">`
	got := testCalculator().AddSrcsetAndSizes(image, testMetadata())
	if strings.Count(got, "sizes=") != 1 || !strings.Contains(got, `sizes="50vw"`) {
		t.Errorf("existing sizes should be kept: %s", got)
	}
	if !strings.Contains(got, "srcset=") {
		t.Errorf("srcset missing: %s", got)
	}
}

func TestCalculator_AddSrcsetAndSizesUnchanged(t *testing.T) {
	c := testCalculator()
	edited := testMetadata()
	edited.File = "2024/05/a-e1700000000000.jpg"

	tests := []struct {
		name  string
		image string
		meta  *types.AttachmentMetadata
	}{
		{"no metadata", `<img src="` + testBase + `a.jpg">`, nil},
		{"no sizes", `<img src="` + testBase + `a.jpg">`, &types.AttachmentMetadata{File: "2024/05/a.jpg"}},
		{"no src", `<img alt="x">`, testMetadata()},
		{"edited since insert", `<img src="` + testBase + `a-300x225.jpg" width="300" height="225">`, edited},
		{"unknown dimensions", `<img src="` + testBase + `other.jpg">`, testMetadata()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.AddSrcsetAndSizes(tt.image, tt.meta); got != tt.image {
				t.Errorf("AddSrcsetAndSizes() = %q, want unchanged", got)
			}
		})
	}
}

func TestTagHelpers(t *testing.T) {
	tag := `<img src="http://site/a.jpg?ver=2" width="640" height="480">`
	if got := ImageSrc(tag); got != "http://site/a.jpg" {
		t.Errorf("ImageSrc() = %q", got)
	}
	if got := ImageSrc(`<img data-src="http://site/lazy.jpg" src="http://site/a.jpg">`); got != "http://site/a.jpg" {
		t.Errorf("ImageSrc(data-src) = %q", got)
	}
	if got := TagSize(tag); got != (Size{Width: 640, Height: 480}) {
		t.Errorf("TagSize() = %+v", got)
	}
	if got := EditHash("a-e1700000000000-300x225.jpg"); got != "-e1700000000000" {
		t.Errorf("EditHash() = %q", got)
	}
	if got := EditHash("a-e170.jpg"); got != "" {
		t.Errorf("EditHash(short) = %q, want empty", got)
	}
}
