package downloader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

type stubFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *stubFetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestSaveResizesCover(t *testing.T) {
	fetcher := &stubFetcher{data: jpegBytes(t, 1280, 720)}
	saver := NewCoverSaver(fetcher, nil)
	savePath := filepath.Join(t.TempDir(), "task", "cover.png")

	if err := saver.Save(context.Background(), "https://i0.hdslb.com/cover.jpg", savePath, "BV1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	img, err := imaging.Open(savePath)
	if err != nil {
		t.Fatalf("imaging.Open() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
		t.Errorf("thumbnail size = %dx%d, expected 640x360", b.Dx(), b.Dy())
	}
}

func TestSaveSkipsExistingFile(t *testing.T) {
	fetcher := &stubFetcher{data: jpegBytes(t, 10, 10)}
	saver := NewCoverSaver(fetcher, nil)
	savePath := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(savePath, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := saver.Save(context.Background(), "https://i0.hdslb.com/cover.jpg", savePath, ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times, expected 0", fetcher.calls)
	}
}

func TestSavePlaceholderWithoutCover(t *testing.T) {
	fetcher := &stubFetcher{}
	saver := NewCoverSaver(fetcher, &CoverConfig{Width: 320, Height: 180, FillColor: "#000000"})
	savePath := filepath.Join(t.TempDir(), "cover.png")

	if err := saver.Save(context.Background(), "", savePath, "EP733316"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times, expected 0", fetcher.calls)
	}
	img, err := imaging.Open(savePath)
	if err != nil {
		t.Fatalf("imaging.Open() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Errorf("placeholder size = %dx%d, expected 320x180", b.Dx(), b.Dy())
	}
}

func TestSaveFetchError(t *testing.T) {
	saver := NewCoverSaver(&stubFetcher{err: errors.New("timeout")}, nil)
	err := saver.Save(context.Background(), "https://i0.hdslb.com/cover.jpg", filepath.Join(t.TempDir(), "c.png"), "")
	if err == nil {
		t.Error("Save() error = nil, expected fetch failure")
	}
}

func TestSaveRejectsInvalidImage(t *testing.T) {
	saver := NewCoverSaver(&stubFetcher{data: []byte("not an image")}, nil)
	err := saver.Save(context.Background(), "https://i0.hdslb.com/cover.jpg", filepath.Join(t.TempDir(), "c.png"), "")
	if err == nil {
		t.Error("Save() error = nil, expected decode failure")
	}
}
