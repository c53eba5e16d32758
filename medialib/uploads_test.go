package medialib

import (
	"path/filepath"
	"testing"
)

func TestUploads_Paths(t *testing.T) {
	u := Uploads{Dir: "/srv/uploads", URL: "http://site/wp-content/uploads/"}

	if got := u.Path("2024/05/a.jpg"); got != filepath.Join("/srv/uploads", "2024", "05", "a.jpg") {
		t.Errorf("Path() = %q", got)
	}
	if got := u.BaseURL(); got != "http://site/wp-content/uploads/" {
		t.Errorf("BaseURL() = %q", got)
	}
}

func TestUploads_RelativePath(t *testing.T) {
	u := Uploads{Dir: "/srv/uploads", URL: "http://site/wp-content/uploads"}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"http://site/wp-content/uploads/2024/05/a.jpg", "2024/05/a.jpg", true},
		{"https://site/wp-content/uploads/2024/05/a.jpg?ver=1", "2024/05/a.jpg", true},
		{"//site/wp-content/uploads/a.png", "a.png", true},
		{"http://SITE/wp-content/uploads/a.png", "a.png", true},
		{"http://elsewhere/wp-content/uploads/a.png", "", false},
		{"http://site/wp-content/themes/a.png", "", false},
		{"http://site/wp-content/uploads/", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := u.RelativePath(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("RelativePath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
