package source

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRows(t *testing.T) {

	// 2x2 frame with rows padded to 8 bytes
	src := []byte{
		1, 2, 3, 4, 5, 6, 0, 0,
		7, 8, 9, 10, 11, 12, 0, 0,
	}

	got := packRows(nil, src, 2, 2, 8)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, got)

	dst := make([]byte, 12)
	got = packRows(dst, src[:12], 2, 2, 6)
	assert.Equal(t, src[:12], got)
	assert.Same(t, &dst[0], &got[0])
}

func TestBufferPool(t *testing.T) {

	pool := NewBufferPool(12)
	assert.Equal(t, 12, pool.Size())

	buf := pool.Get()
	assert.Len(t, buf, 12)

	pool.Put(buf)
	// foreign buffers are ignored
	pool.Put(make([]byte, 5))

	assert.Len(t, pool.Get(), 12)
}

func TestFrameRelease(t *testing.T) {

	released := 0
	f := Frame{
		Data:    []byte{1, 2, 3},
		release: func() { released++ },
	}

	f.Release()
	f.Release()

	assert.Equal(t, 1, released)
	assert.Nil(t, f.Data)
}

func TestImageFiles(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})

	require.True(t, IsImage(path))
	require.NoError(t, SaveImage(path, img))

	got, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())

	r, _, _, _ := got.At(1, 1).RGBA()
	assert.Equal(t, uint32(200*0x101), r)

	_, err = LoadImage(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)

	assert.False(t, IsImage(filepath.Join(dir, "clip.mp4")))
}

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, "/data/street.out.jpg", ImageOutputPath("/data/street.png"))
	assert.Equal(t, "/data/street.mp4.out.mkv", VideoOutputPath("/data/street.mp4"))
}

func TestCaptureSourceMissing(t *testing.T) {

	src := NewCaptureSource(filepath.Join(t.TempDir(), "missing.mp4"), logs.NewTestingLog(t))
	frames, errs := src.Frames(context.Background())

	for range frames {
		t.Fatal("unexpected frame")
	}

	assert.Error(t, <-errs)
}
