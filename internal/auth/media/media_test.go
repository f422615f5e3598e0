package media_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	t.Parallel()

	t.Run("png", func(t *testing.T) {
		t.Parallel()
		img, err := media.Inspect(pngBytes(t, 40, 30))
		require.NoError(t, err)
		require.Equal(t, "image/png", img.MimeType)
		require.Equal(t, 40, img.Width)
		require.Equal(t, 30, img.Height)
	})

	t.Run("gif", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		pal := image.NewPaletted(image.Rect(0, 0, 8, 4), []color.Color{color.Black, color.White})
		require.NoError(t, gif.Encode(&buf, pal, nil))

		img, err := media.Inspect(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, "image/gif", img.MimeType)
		require.Equal(t, 8, img.Width)
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()
		_, err := media.Inspect([]byte("%PDF-1.4 not an image"))
		require.ErrorIs(t, err, media.ErrUnsupportedType)
	})

	t.Run("truncated image", func(t *testing.T) {
		t.Parallel()
		data := pngBytes(t, 10, 10)
		_, err := media.Inspect(data[:20])
		require.ErrorIs(t, err, media.ErrInvalidImage)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		_, err := media.Inspect(make([]byte, media.MaxImageSize+1))
		require.ErrorIs(t, err, media.ErrTooLarge)
	})
}

func TestNewKey(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_123)
	pattern := regexp.MustCompile(`^profile-images/1700000000123-[0-9a-f-]{36}\.(jpg|png|webp)$`)

	require.Regexp(t, pattern, media.NewKey(now, "Me.JPEG", "image/jpeg"))
	require.True(t, strings.HasSuffix(media.NewKey(now, "me.png", "image/png"), ".png"))
	require.True(t, strings.HasSuffix(media.NewKey(now, "blob", "image/webp"), ".webp"))
	require.True(t, strings.HasSuffix(media.NewKey(now, "evil.exe", "image/png"), ".png"))
	require.NotEqual(t, media.NewKey(now, "a.png", "image/png"), media.NewKey(now, "a.png", "image/png"))
}

func TestLocalStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s, err := media.NewLocalStorage(dir, "http://localhost:8080/media/")
	require.NoError(t, err)

	key := "profile-images/1-abc.png"
	url, err := s.Put(ctx, key, bytes.NewReader([]byte("data")), "image/png")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/media/profile-images/1-abc.png", url)

	stored, err := os.ReadFile(filepath.Join(dir, "profile-images", "1-abc.png"))
	require.NoError(t, err)
	require.Equal(t, "data", string(stored))

	srv := httptest.NewServer(http.StripPrefix("/media/", s.Handler()))
	t.Cleanup(srv.Close)
	resp, err := http.Get(srv.URL + "/media/" + key)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "data", string(body))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Put(ctx, "../escape.png", bytes.NewReader(nil), "image/png")
	require.Error(t, err)
}
