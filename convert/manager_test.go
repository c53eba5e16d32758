package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pithecene-io/imagesources/types"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu       sync.Mutex
	files    map[int64]string
	meta     map[int64]*types.AttachmentMetadata
	webp     map[int64]*types.WebPMetadata
	hasWebP  map[int64]bool
	failSave error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:   make(map[int64]string),
		meta:    make(map[int64]*types.AttachmentMetadata),
		webp:    make(map[int64]*types.WebPMetadata),
		hasWebP: make(map[int64]bool),
	}
}

func (s *fakeStore) AttachedFile(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.files[id]
	if !ok {
		return "", errors.New("not found")
	}
	return path, nil
}

func (s *fakeStore) AttachmentMetadata(_ context.Context, id int64) (*types.AttachmentMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta[id].Clone(), nil
}

func (s *fakeStore) SetHasWebP(_ context.Context, id int64, has bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.hasWebP[id] = has
	return nil
}

func (s *fakeStore) UpdateWebPMetadata(_ context.Context, id int64, meta *types.WebPMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.webp[id] = meta.Clone()
	return nil
}

func (s *fakeStore) DeleteWebPMetadata(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.webp, id)
	delete(s.hasWebP, id)
	return nil
}

// fakeCodec writes a placeholder destination file, failing for sources
// whose base name is listed in fail.
type fakeCodec struct {
	mu      sync.Mutex
	fail    map[string]bool
	calls   []string
	quality int
}

func (c *fakeCodec) Convert(_ context.Context, source, destination string, opts Options) error {
	c.mu.Lock()
	c.calls = append(c.calls, filepath.Base(source))
	c.quality = opts.Quality
	fail := c.fail[filepath.Base(source)]
	c.mu.Unlock()

	if fail {
		return ErrConversion
	}
	return os.WriteFile(destination, []byte("RIFF"), 0o644)
}

// seedAttachment7 lays out the attachment used throughout these tests.
func seedAttachment7(t *testing.T, store *fakeStore) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "2024", "05")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.png", "a-150x150.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store.files[7] = filepath.Join(dir, "a.png")
	store.meta[7] = &types.AttachmentMetadata{
		Width:  800,
		Height: 600,
		File:   "2024/05/a.png",
		Sizes: map[string]types.SizeMeta{
			"thumbnail": {File: "a-150x150.png", Width: 150, Height: 150, MimeType: "image/png"},
		},
	}
	return dir
}

func newTestManager(t *testing.T, store Store, codec Codec) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{Store: store, Codec: codec})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	if _, err := NewManager(ManagerConfig{Codec: &fakeCodec{}}); err == nil {
		t.Error("expected error without store")
	}
	if _, err := NewManager(ManagerConfig{Store: newFakeStore()}); err == nil {
		t.Error("expected error without codec")
	}
}

func TestDestinationPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/u/a.jpg", "/u/a.webp"},
		{"/u/a.jpeg", "/u/a.webp"},
		{"/u/a.png", "/u/a.webp"},
		{"/u/a.jpg.png", "/u/a.jpg.webp"},
		{"/u/a.JPG", "/u/a.JPG"},
		{"/u/a.gif", "/u/a.gif"},
		{"/u/a.webp", "/u/a.webp"},
	}
	for _, tt := range tests {
		if got := DestinationPath(tt.in); got != tt.want {
			t.Errorf("DestinationPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestManager_ConvertProducesWebPFamily(t *testing.T) {
	store := newFakeStore()
	dir := seedAttachment7(t, store)
	codec := &fakeCodec{}
	m := newTestManager(t, store, codec)

	if err := m.Convert(context.Background(), 7, nil); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	for _, name := range []string{"a.webp", "a-150x150.webp"} {
		if !fileExists(filepath.Join(dir, name)) {
			t.Errorf("%s was not created", name)
		}
	}
	if codec.quality != Quality {
		t.Errorf("quality = %d, want %d", codec.quality, Quality)
	}

	got := store.webp[7]
	if got == nil {
		t.Fatal("webp metadata not stored")
	}
	if got.File != "2024/05/a.webp" {
		t.Errorf("File = %q, want 2024/05/a.webp", got.File)
	}
	if got.Width != 800 || got.Height != 600 {
		t.Errorf("dimensions = %dx%d, want 800x600", got.Width, got.Height)
	}
	if len(got.Sizes) != 1 {
		t.Fatalf("Sizes = %v, want only thumbnail", got.Sizes)
	}
	want := types.SizeMeta{File: "a-150x150.webp", Width: 150, Height: 150, MimeType: types.WebPMimeType}
	if got.Sizes["thumbnail"] != want {
		t.Errorf("thumbnail = %+v, want %+v", got.Sizes["thumbnail"], want)
	}
	if !store.hasWebP[7] {
		t.Error("has_webp flag not set")
	}
}

func TestManager_ConvertCollectsPerSizeFailures(t *testing.T) {
	store := newFakeStore()
	dir := seedAttachment7(t, store)
	codec := &fakeCodec{fail: map[string]bool{"a-150x150.png": true}}
	m := newTestManager(t, store, codec)

	err := m.Convert(context.Background(), 7, nil)

	var collected *Error
	if !errors.As(err, &collected) {
		t.Fatalf("Convert error = %v, want *Error", err)
	}
	if collected.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", collected.Count())
	}
	if msg := collected.Errors()[0]; msg != "Unable to convert a-150x150.webp to webp." {
		t.Errorf("entry = %q", msg)
	}

	// The remaining sizes still convert and metadata is still written.
	if !fileExists(filepath.Join(dir, "a.webp")) {
		t.Error("full size should still be converted")
	}
	if len(codec.calls) != 2 {
		t.Errorf("codec calls = %v, want both sizes attempted", codec.calls)
	}
	if store.webp[7] == nil {
		t.Fatal("metadata should be written on partial failure")
	}
	if _, ok := store.webp[7].Sizes["thumbnail"]; ok {
		t.Error("failed size must not appear in metadata")
	}
}

func TestManager_ConvertUsesSuppliedMetadata(t *testing.T) {
	store := newFakeStore()
	seedAttachment7(t, store)
	codec := &fakeCodec{}
	m := newTestManager(t, store, codec)

	fresh := &types.AttachmentMetadata{Width: 800, Height: 600, File: "2024/05/a.png"}
	if err := m.Convert(context.Background(), 7, fresh); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(codec.calls) != 1 || codec.calls[0] != "a.png" {
		t.Errorf("codec calls = %v, want only a.png", codec.calls)
	}
}

func TestManager_ConvertSkipsNonRasterFiles(t *testing.T) {
	store := newFakeStore()
	store.files[3] = filepath.Join(t.TempDir(), "anim.gif")
	store.meta[3] = &types.AttachmentMetadata{
		Width: 10, Height: 10, File: "anim.gif",
		Sizes: map[string]types.SizeMeta{"thumbnail": {File: "anim-5x5.gif", Width: 5, Height: 5}},
	}
	codec := &fakeCodec{}
	m := newTestManager(t, store, codec)

	if err := m.Convert(context.Background(), 3, nil); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(codec.calls) != 0 {
		t.Errorf("codec should not run for gif, got %v", codec.calls)
	}
	if got := store.webp[3]; got == nil || len(got.Sizes) != 0 {
		t.Errorf("webp metadata = %+v, want empty sizes", got)
	}
}

func TestManager_ConvertPersistenceFailure(t *testing.T) {
	store := newFakeStore()
	seedAttachment7(t, store)
	store.failSave = errors.New("disk full")
	m := newTestManager(t, store, &fakeCodec{})

	err := m.Convert(context.Background(), 7, nil)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	var collected *Error
	if errors.As(err, &collected) {
		t.Error("persistence failure should not be reported as *Error")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v, want wrapped cause", err)
	}
}

func TestManager_ConvertThenDeleteLeavesNoOrphans(t *testing.T) {
	store := newFakeStore()
	dir := seedAttachment7(t, store)
	m := newTestManager(t, store, &fakeCodec{})
	ctx := context.Background()

	if err := m.Convert(ctx, 7, nil); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := m.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".webp") {
			t.Errorf("orphaned derived file %s", e.Name())
		}
	}
	if _, ok := store.webp[7]; ok {
		t.Error("webp metadata record should be removed")
	}
	if _, ok := store.hasWebP[7]; ok {
		t.Error("has_webp flag should be removed")
	}

	// Originals stay untouched.
	if !fileExists(filepath.Join(dir, "a.png")) || !fileExists(filepath.Join(dir, "a-150x150.png")) {
		t.Error("original files must not be removed")
	}
}

func TestManager_DeleteIgnoresMissingFiles(t *testing.T) {
	store := newFakeStore()
	seedAttachment7(t, store)
	m := newTestManager(t, store, &fakeCodec{})

	if err := m.Delete(context.Background(), 7); err != nil {
		t.Errorf("Delete without derived files: %v", err)
	}
}

func TestManager_DeleteReportsRemoveFailures(t *testing.T) {
	store := newFakeStore()
	seedAttachment7(t, store)
	store.webp[7] = &types.WebPMetadata{File: "2024/05/a.webp"}

	m, err := NewManager(ManagerConfig{
		Store:  store,
		Codec:  &fakeCodec{},
		Remove: func(string) error { return os.ErrPermission },
	})
	if err != nil {
		t.Fatal(err)
	}

	err = m.Delete(context.Background(), 7)
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("Delete error = %v, want permission error", err)
	}
	if _, ok := store.webp[7]; ok {
		t.Error("metadata should be removed even when a file removal fails")
	}
}

func TestRemoveFile_MissingIsSuccess(t *testing.T) {
	if err := RemoveFile(filepath.Join(t.TempDir(), "nope.webp")); err != nil {
		t.Errorf("RemoveFile: %v", err)
	}
}
