package source

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/artemshloyda/rtconvert/internal/codec"
)

func pngBytes(t *testing.T, w, h int, transparent bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	if transparent {
		img.Set(0, 0, color.NRGBA{})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func bmpBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"jpeg magic", "a.bin", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"png magic", "a", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif89a", "a", []byte("GIF89a...."), "image/gif"},
		{"webp", "a", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"riff without riff header", "a", []byte("XXXX\x00\x00\x00\x00WEBP"), ""},
		{"bmp", "a", bmpBytes(t), "image/bmp"},
		{"tiff", "a", []byte{'I', 'I', 0x2A, 0x00}, "image/tiff"},
		{"extension fallback", "photo.png", []byte("????"), "image/png"},
		{"text", "notes.txt", []byte("hello"), "text/plain"},
		{"text without extension", "blob", []byte("hello"), "text/plain"},
		{"unknown binary", "blob", []byte{0x00, 0x01, 0x02, 0x03}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIME(tt.file, tt.data))
		})
	}
}

func TestFromBytes(t *testing.T) {
	data := pngBytes(t, 16, 9, true)

	img, err := FromBytes(context.Background(), "logo.png", data, codec.NewNative())
	require.NoError(t, err)

	assert.Equal(t, "logo.png", img.Name)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, int64(len(data)), img.ByteSize)
	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 9, img.Height)
	assert.True(t, img.HasTransparency)
	assert.Len(t, img.SHA256, 64)
	assert.InDelta(t, 16.0/9.0, img.Ratio(), 1e-9)
}

func TestFromBytes_NotImage(t *testing.T) {
	_, err := FromBytes(context.Background(), "notes.txt", []byte("hello"), codec.NewNative())
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = FromBytes(context.Background(), "blob", []byte("hello"), codec.NewNative())
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFromBytes_CorruptImage(t *testing.T) {
	_, err := FromBytes(context.Background(), "broken.png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0}, codec.NewNative())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotImage)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 4, 4, false), 0644))

	img, err := Load(context.Background(), path, codec.NewNative())
	require.NoError(t, err)
	assert.Equal(t, "pic.png", img.Name)
	assert.False(t, img.HasTransparency)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.png"), codec.NewNative())
	assert.Error(t, err)
}

func TestComputeSHA256(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ComputeSHA256(nil))
}
