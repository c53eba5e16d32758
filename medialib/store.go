// Package medialib is a SQLite-backed media library: posts, image
// attachments and their keyed metadata, plus the URL and srcset helpers
// that go with them.
//
// Attachments are posts of type "attachment". Metadata values are msgpack
// encoded rows of the postmeta table.
package medialib

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pithecene-io/imagesources/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_type TEXT NOT NULL DEFAULT 'post',
	post_status TEXT NOT NULL DEFAULT 'publish',
	post_mime_type TEXT NOT NULL DEFAULT '',
	post_content TEXT NOT NULL DEFAULT '',
	attached_file TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_posts_type ON posts(post_type);
CREATE INDEX IF NOT EXISTS idx_posts_attached_file ON posts(attached_file);
CREATE TABLE IF NOT EXISTS postmeta (
	post_id INTEGER NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value BLOB,
	PRIMARY KEY (post_id, meta_key)
);`

// Store is the media library database.
type Store struct {
	db      *sql.DB
	uploads Uploads
}

// Open opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func Open(path string, uploads Uploads) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, uploads: uploads}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Uploads returns the uploads location the store resolves paths against.
func (s *Store) Uploads() Uploads {
	return s.uploads
}

// CreatePost inserts p and returns its ID. A zero p.ID is assigned by the
// database.
func (s *Store) CreatePost(ctx context.Context, p types.Post) (int64, error) {
	if p.Type == "" {
		p.Type = "post"
	}
	if p.Status == "" {
		p.Status = "publish"
	}
	return s.insertPost(ctx, p.ID, p.Type, p.Status, "", p.Content, "")
}

// CreateAttachment inserts an attachment and, when meta is non-nil, its
// metadata. It returns the attachment ID.
func (s *Store) CreateAttachment(ctx context.Context, a types.Attachment, meta *types.AttachmentMetadata) (int64, error) {
	id, err := s.insertPost(ctx, a.ID, types.PostTypeAttachment, "inherit", a.MimeType, "", a.AttachedFile)
	if err != nil {
		return 0, err
	}
	if meta != nil {
		if err := s.UpdateAttachmentMetadata(ctx, id, meta); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (s *Store) insertPost(ctx context.Context, id int64, postType, status, mime, content, file string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if id > 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO posts (id, post_type, post_status, post_mime_type, post_content, attached_file) VALUES (?, ?, ?, ?, ?, ?)`,
			id, postType, status, mime, content, file)
	} else {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO posts (post_type, post_status, post_mime_type, post_content, attached_file) VALUES (?, ?, ?, ?, ?)`,
			postType, status, mime, content, file)
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", postType, err)
	}
	return res.LastInsertId()
}

// Post returns the post with the given ID.
func (s *Store) Post(ctx context.Context, id int64) (types.Post, error) {
	var p types.Post
	err := s.db.QueryRowContext(ctx,
		`SELECT id, post_type, post_status, post_content FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.Type, &p.Status, &p.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Post{}, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Post{}, fmt.Errorf("post %d: %w", id, err)
	}
	return p, nil
}

// PostsContaining returns posts of any status whose content contains
// needle, ordered by ID. An empty postTypes matches every non-attachment
// type.
func (s *Store) PostsContaining(ctx context.Context, postTypes []string, needle string) ([]types.Post, error) {
	query := `SELECT id, post_type, post_status, post_content FROM posts WHERE instr(post_content, ?) > 0`
	args := []any{needle}
	if len(postTypes) > 0 {
		query += ` AND post_type IN (` + placeholders(len(postTypes)) + `)`
		for _, t := range postTypes {
			args = append(args, t)
		}
	} else {
		query += ` AND post_type <> ?`
		args = append(args, types.PostTypeAttachment)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []types.Post
	for rows.Next() {
		var p types.Post
		if err := rows.Scan(&p.ID, &p.Type, &p.Status, &p.Content); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Attachments returns every attachment, ordered by ID.
func (s *Store) Attachments(ctx context.Context) ([]types.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_mime_type, attached_file FROM posts WHERE post_type = ? ORDER BY id`,
		types.PostTypeAttachment)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Attachment
	for rows.Next() {
		var a types.Attachment
		if err := rows.Scan(&a.ID, &a.MimeType, &a.AttachedFile); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdatePostContent replaces the content of a post. It returns
// ErrNotUpdated when no post has the given ID.
func (s *Store) UpdatePostContent(ctx context.Context, id int64, content string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET post_content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("update post %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update post %d: %w", id, ErrNotUpdated)
	}
	return nil
}

func (s *Store) attachment(ctx context.Context, id int64) (types.Attachment, error) {
	a := types.Attachment{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT post_mime_type, attached_file FROM posts WHERE id = ? AND post_type = ?`,
		id, types.PostTypeAttachment).Scan(&a.MimeType, &a.AttachedFile)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("attachment %d: %w", id, err)
	}
	return a, nil
}

// AttachedFile returns the absolute path of the attachment's primary file.
func (s *Store) AttachedFile(ctx context.Context, id int64) (string, error) {
	a, err := s.attachment(ctx, id)
	if err != nil {
		return "", err
	}
	if a.AttachedFile == "" {
		return "", fmt.Errorf("attachment %d: no attached file: %w", id, ErrNotFound)
	}
	return s.uploads.Path(a.AttachedFile), nil
}

// IsImage reports whether the attachment has an image MIME type.
func (s *Store) IsImage(ctx context.Context, id int64) (bool, error) {
	a, err := s.attachment(ctx, id)
	if err != nil {
		return false, err
	}
	return a.IsImage(), nil
}

// AttachmentIDByURL resolves a public upload URL to the attachment whose
// primary file it names. A miss returns 0 and no error.
func (s *Store) AttachmentIDByURL(ctx context.Context, raw string) (int64, error) {
	rel, ok := s.uploads.RelativePath(raw)
	if !ok {
		return 0, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM posts WHERE post_type = ? AND attached_file = ? ORDER BY id LIMIT 1`,
		types.PostTypeAttachment, rel).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", raw, err)
	}
	return id, nil
}

// AttachmentMetadata returns the size metadata, or nil when none is stored.
func (s *Store) AttachmentMetadata(ctx context.Context, id int64) (*types.AttachmentMetadata, error) {
	return s.metadata(ctx, id, MetaAttachmentMetadata)
}

// AttachmentMetadataBatch loads the size metadata of several attachments
// in one query. IDs without metadata map to nil.
func (s *Store) AttachmentMetadataBatch(ctx context.Context, ids []int64) (map[int64]*types.AttachmentMetadata, error) {
	return s.metadataBatch(ctx, ids, MetaAttachmentMetadata)
}

// UpdateAttachmentMetadata replaces the size metadata.
func (s *Store) UpdateAttachmentMetadata(ctx context.Context, id int64, meta *types.AttachmentMetadata) error {
	return s.putMetadata(ctx, id, MetaAttachmentMetadata, meta)
}

// WebPMetadata returns the WebP metadata record, or nil when none is stored.
func (s *Store) WebPMetadata(ctx context.Context, id int64) (*types.WebPMetadata, error) {
	return s.metadata(ctx, id, MetaWebPMetadata)
}

// WebPMetadataBatch loads the WebP metadata of several attachments in one
// query. IDs without a record map to nil.
func (s *Store) WebPMetadataBatch(ctx context.Context, ids []int64) (map[int64]*types.WebPMetadata, error) {
	return s.metadataBatch(ctx, ids, MetaWebPMetadata)
}

// UpdateWebPMetadata replaces the WebP metadata record.
func (s *Store) UpdateWebPMetadata(ctx context.Context, id int64, meta *types.WebPMetadata) error {
	return s.putMetadata(ctx, id, MetaWebPMetadata, meta)
}

// DeleteWebPMetadata removes the WebP metadata record and the has_webp flag.
func (s *Store) DeleteWebPMetadata(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM postmeta WHERE post_id = ? AND meta_key IN (?, ?)`,
		id, MetaWebPMetadata, MetaHasWebP)
	if err != nil {
		return fmt.Errorf("delete webp metadata %d: %w", id, err)
	}
	return nil
}

// SetHasWebP stores the has_webp flag.
func (s *Store) SetHasWebP(ctx context.Context, id int64, has bool) error {
	data, err := encodeBool(has)
	if err != nil {
		return err
	}
	return s.putMeta(ctx, id, MetaHasWebP, data)
}

// HasWebP reports the has_webp flag. An absent flag is false.
func (s *Store) HasWebP(ctx context.Context, id int64) (bool, error) {
	data, err := s.getMeta(ctx, id, MetaHasWebP)
	if err != nil || data == nil {
		return false, err
	}
	return decodeBool(data)
}

// DeleteAttachment removes an attachment and all of its metadata rows.
func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete attachment %d: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM postmeta WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("delete attachment %d meta: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ? AND post_type = ?`, id, types.PostTypeAttachment)
	if err != nil {
		return fmt.Errorf("delete attachment %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete attachment %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

func (s *Store) metadata(ctx context.Context, id int64, key string) (*types.AttachmentMetadata, error) {
	data, err := s.getMeta(ctx, id, key)
	if err != nil || data == nil {
		return nil, err
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", key, id, err)
	}
	return meta, nil
}

func (s *Store) metadataBatch(ctx context.Context, ids []int64, key string) (map[int64]*types.AttachmentMetadata, error) {
	out := make(map[int64]*types.AttachmentMetadata, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, key)
	for _, id := range ids {
		out[id] = nil
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id, meta_value FROM postmeta WHERE meta_key = ? AND post_id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id   int64
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("batch %s: %w", key, err)
		}
		meta, err := decodeMetadata(data)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", key, id, err)
		}
		out[id] = meta
	}
	return out, rows.Err()
}

func (s *Store) putMetadata(ctx context.Context, id int64, key string, meta *types.AttachmentMetadata) error {
	data, err := encodeMetadata(meta)
	if err != nil {
		return err
	}
	return s.putMeta(ctx, id, key, data)
}

func (s *Store) getMeta(ctx context.Context, id int64, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT meta_value FROM postmeta WHERE post_id = ? AND meta_key = ?`, id, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %d: %w", key, id, err)
	}
	return data, nil
}

func (s *Store) putMeta(ctx context.Context, id int64, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
		 ON CONFLICT(post_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
		id, key, data)
	if err != nil {
		return fmt.Errorf("write %s %d: %w", key, id, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
