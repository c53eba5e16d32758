package medialib

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pithecene-io/imagesources/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "media.db"), Uploads{
		Dir: "/srv/uploads",
		URL: "http://site/wp-content/uploads",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Posts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	withImage, err := s.CreatePost(ctx, types.Post{Content: `<p><img src="a.jpg"></p>`})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := s.CreatePost(ctx, types.Post{Content: "text only"}); err != nil {
		t.Fatal(err)
	}
	draftPage, err := s.CreatePost(ctx, types.Post{Type: "page", Status: "draft", Content: `<img src="b.jpg">`})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePost(ctx, types.Post{Type: "event", Content: `<img src="c.jpg">`}); err != nil {
		t.Fatal(err)
	}

	got, err := s.PostsContaining(ctx, []string{"post", "page"}, "<img")
	if err != nil {
		t.Fatalf("PostsContaining: %v", err)
	}
	if len(got) != 2 || got[0].ID != withImage || got[1].ID != draftPage {
		t.Fatalf("PostsContaining = %+v", got)
	}
	if got[1].Status != "draft" {
		t.Errorf("Status = %q, want draft", got[1].Status)
	}

	all, err := s.PostsContaining(ctx, nil, "<img")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("PostsContaining(any type) = %d posts, want 3", len(all))
	}

	if err := s.UpdatePostContent(ctx, withImage, "updated"); err != nil {
		t.Fatalf("UpdatePostContent: %v", err)
	}
	p, err := s.Post(ctx, withImage)
	if err != nil {
		t.Fatal(err)
	}
	if p.Content != "updated" {
		t.Errorf("Content = %q", p.Content)
	}

	if err := s.UpdatePostContent(ctx, 999, "x"); !errors.Is(err, ErrNotUpdated) {
		t.Errorf("UpdatePostContent(missing) = %v, want ErrNotUpdated", err)
	}
	if _, err := s.Post(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Post(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_Attachments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := &types.AttachmentMetadata{
		Width: 800, Height: 600, File: "2024/05/a.png",
		Sizes: map[string]types.SizeMeta{
			"thumbnail": {File: "a-150x150.png", Width: 150, Height: 150, MimeType: "image/png"},
		},
	}
	id, err := s.CreateAttachment(ctx, types.Attachment{ID: 7, MimeType: "image/png", AttachedFile: "2024/05/a.png"}, meta)
	if err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
	pdf, err := s.CreateAttachment(ctx, types.Attachment{MimeType: "application/pdf", AttachedFile: "2024/05/doc.pdf"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	list, err := s.Attachments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("Attachments() = %+v", list)
	}

	if ok, err := s.IsImage(ctx, 7); err != nil || !ok {
		t.Errorf("IsImage(7) = %v, %v", ok, err)
	}
	if ok, err := s.IsImage(ctx, pdf); err != nil || ok {
		t.Errorf("IsImage(pdf) = %v, %v", ok, err)
	}

	path, err := s.AttachedFile(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join("/srv/uploads", "2024", "05", "a.png") {
		t.Errorf("AttachedFile = %q", path)
	}

	got, err := s.AttachmentMetadata(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.File != meta.File || got.Sizes["thumbnail"] != meta.Sizes["thumbnail"] {
		t.Errorf("AttachmentMetadata = %+v", got)
	}

	none, err := s.AttachmentMetadata(ctx, pdf)
	if err != nil || none != nil {
		t.Errorf("AttachmentMetadata(pdf) = %+v, %v; want nil, nil", none, err)
	}

	if _, err := s.AttachedFile(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("AttachedFile(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_AttachmentIDByURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateAttachment(ctx, types.Attachment{ID: 42, MimeType: "image/png", AttachedFile: "x.png"}, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url  string
		want int64
	}{
		{"http://site/wp-content/uploads/x.png", 42},
		{"https://site/wp-content/uploads/x.png", 42},
		{"http://site/wp-content/uploads/y.png", 0},
		{"http://other/wp-content/uploads/x.png", 0},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := s.AttachmentIDByURL(ctx, tt.url)
		if err != nil {
			t.Errorf("AttachmentIDByURL(%q): %v", tt.url, err)
		}
		if got != tt.want {
			t.Errorf("AttachmentIDByURL(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestStore_WebPMetadataLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateAttachment(ctx, types.Attachment{ID: 7, MimeType: "image/png", AttachedFile: "a.png"}, nil); err != nil {
		t.Fatal(err)
	}

	if has, err := s.HasWebP(ctx, 7); err != nil || has {
		t.Errorf("HasWebP before conversion = %v, %v", has, err)
	}

	first := &types.WebPMetadata{File: "a.webp", Sizes: map[string]types.SizeMeta{
		"thumbnail": {File: "a-150x150.webp", Width: 150, Height: 150, MimeType: types.WebPMimeType},
	}}
	if err := s.UpdateWebPMetadata(ctx, 7, first); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHasWebP(ctx, 7, true); err != nil {
		t.Fatal(err)
	}

	// A later record replaces, never merges.
	second := &types.WebPMetadata{File: "a.webp", Sizes: map[string]types.SizeMeta{}}
	if err := s.UpdateWebPMetadata(ctx, 7, second); err != nil {
		t.Fatal(err)
	}
	got, err := s.WebPMetadata(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sizes) != 0 {
		t.Errorf("Sizes = %v, want replaced record", got.Sizes)
	}
	if has, _ := s.HasWebP(ctx, 7); !has {
		t.Error("HasWebP = false after SetHasWebP(true)")
	}

	if err := s.DeleteWebPMetadata(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.WebPMetadata(ctx, 7); got != nil {
		t.Errorf("WebPMetadata after delete = %+v", got)
	}
	if has, _ := s.HasWebP(ctx, 7); has {
		t.Error("HasWebP should be cleared")
	}
}

func TestStore_MetadataBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		var meta *types.AttachmentMetadata
		if id != 2 {
			meta = &types.AttachmentMetadata{File: "f.jpg", Width: int(id)}
		}
		if _, err := s.CreateAttachment(ctx, types.Attachment{ID: id, MimeType: "image/jpeg", AttachedFile: "f.jpg"}, meta); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.AttachmentMetadataBatch(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("batch = %v, want 3 keys", got)
	}
	if got[1].Width != 1 || got[3].Width != 3 {
		t.Errorf("batch widths = %d, %d", got[1].Width, got[3].Width)
	}
	if got[2] != nil {
		t.Errorf("batch[2] = %+v, want nil", got[2])
	}

	empty, err := s.WebPMetadataBatch(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty batch = %v, %v", empty, err)
	}
}

func TestStore_DeleteAttachment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := &types.AttachmentMetadata{File: "a.png"}
	if _, err := s.CreateAttachment(ctx, types.Attachment{ID: 7, MimeType: "image/png", AttachedFile: "a.png"}, meta); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHasWebP(ctx, 7, true); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAttachment(ctx, 7); err != nil {
		t.Fatalf("DeleteAttachment: %v", err)
	}
	if _, err := s.AttachedFile(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("AttachedFile after delete = %v", err)
	}
	if got, _ := s.AttachmentMetadata(ctx, 7); got != nil {
		t.Error("metadata rows should be deleted")
	}
	if err := s.DeleteAttachment(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
