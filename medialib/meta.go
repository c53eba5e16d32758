package medialib

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/imagesources/types"
)

// Meta keys stored in the postmeta table.
const (
	MetaAttachmentMetadata = "_wp_attachment_metadata"
	MetaWebPMetadata       = "_wp_webp_metadata"
	MetaHasWebP            = "has_webp"
)

func encodeMetadata(meta *types.AttachmentMetadata) ([]byte, error) {
	data, err := msgpack.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func decodeMetadata(data []byte) (*types.AttachmentMetadata, error) {
	var meta types.AttachmentMetadata
	if err := msgpack.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func encodeBool(v bool) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decodeBool(data []byte) (bool, error) {
	var v bool
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return false, fmt.Errorf("decode flag: %w", err)
	}
	return v, nil
}
