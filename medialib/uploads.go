package medialib

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Uploads locates the uploads directory on disk and on the web.
type Uploads struct {
	// Dir is the absolute uploads directory.
	Dir string
	// URL is the public base URL of Dir.
	URL string
}

// Path returns the absolute path of an upload-relative file.
func (u Uploads) Path(rel string) string {
	return filepath.Join(u.Dir, filepath.FromSlash(strings.TrimLeft(rel, "/")))
}

// BaseURL returns URL with exactly one trailing slash.
func (u Uploads) BaseURL() string {
	return strings.TrimRight(u.URL, "/") + "/"
}

// RelativePath maps a public URL back to its upload-relative path.
// The scheme is ignored; the host must match and the path must live under
// the uploads URL. The query and fragment are dropped.
func (u Uploads) RelativePath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	target, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	base, err := url.Parse(u.BaseURL())
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(target.Host, base.Host) {
		return "", false
	}

	rel, ok := strings.CutPrefix(target.Path, base.Path)
	if !ok || rel == "" {
		return "", false
	}
	return path.Clean(rel), true
}
