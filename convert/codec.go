package convert

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ErrConversion is the generic failure reported by a Codec.
var ErrConversion = errors.New("webp conversion failed")

// Options configures a single conversion.
type Options struct {
	// Quality is the lossy encoding quality, 0-100.
	Quality int
}

// Codec converts a source image file into a WebP file.
type Codec interface {
	// Convert writes the WebP rendition of source to destination.
	// On failure no partial destination file is left behind.
	Convert(ctx context.Context, source, destination string, opts Options) error
}

// WebPCodec encodes WebP files with libwebp.
type WebPCodec struct{}

// Convert implements Codec.
func (WebPCodec) Convert(ctx context.Context, source, destination string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrConversion, source, err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(opts.Quality))
	if err != nil {
		return fmt.Errorf("%w: encoder options: %v", ErrConversion, err)
	}

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrConversion, destination, err)
	}

	if err := webp.Encode(out, img, options); err != nil {
		_ = out.Close()
		_ = os.Remove(destination)
		return fmt.Errorf("%w: encode %s: %v", ErrConversion, destination, err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(destination)
		return fmt.Errorf("%w: close %s: %v", ErrConversion, destination, err)
	}
	return nil
}

// Verify WebPCodec implements Codec.
var _ Codec = WebPCodec{}
