// Package media validates profile images and stores them as blobs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

// KeyPrefix namespaces profile images inside the store.
const KeyPrefix = "profile-images"

var (
	ErrTooLarge        = errors.New("media: file exceeds size limit")
	ErrUnsupportedType = errors.New("media: unsupported file type")
	ErrInvalidImage    = errors.New("media: invalid image")
)

// allowed maps accepted MIME types onto their canonical extension.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage is the blob store behind profile images.
type Storage interface {
	// Put stores the blob under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Image is an upload that passed validation.
type Image struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Inspect sniffs data, checks it against the allowed types and decodes the
// image header to learn its dimensions.
func Inspect(data []byte) (Image, error) {
	if len(data) > MaxImageSize {
		return Image{}, ErrTooLarge
	}

	mime := http.DetectContentType(data)
	if _, ok := allowed[mime]; !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return Image{Data: data, MimeType: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

// NewKey returns profile-images/<unix-ms>-<uuid><ext>. The extension comes
// from originalName when it is one of the allowed ones, otherwise from mime.
func NewKey(now time.Time, originalName, mime string) string {
	ext := strings.ToLower(path.Ext(originalName))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if !knownExt(ext) {
		ext = allowed[mime]
	}
	return fmt.Sprintf("%s/%d-%s%s", KeyPrefix, now.UnixMilli(), uuid.NewString(), ext)
}

func knownExt(ext string) bool {
	for _, e := range allowed {
		if e == ext {
			return true
		}
	}
	return false
}
