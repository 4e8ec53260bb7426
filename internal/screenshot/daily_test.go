package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeUploader struct {
	calls int
	err   error
}

func (f *fakeUploader) UploadPNG(ctx context.Context, path string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://drive.example/view/%d", f.calls), nil
}

func fixedClock(day int) func() time.Time {
	return func() time.Time { return time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC) }
}

func capturePNG(counter *int) func() ([]byte, error) {
	return func() ([]byte, error) {
		*counter++
		return []byte("png-bytes"), nil
	}
}

func TestEnsureLinkUploadsOncePerDate(t *testing.T) {
	daily := &Daily{Dir: t.TempDir(), Now: fixedClock(2)}
	uploader := &fakeUploader{}
	captures := 0

	first, err := daily.EnsureLink(context.Background(), capturePNG(&captures), uploader)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := daily.EnsureLink(context.Background(), capturePNG(&captures), uploader)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if uploader.calls != 1 {
		t.Errorf("Expected 1 upload for same-day runs, got %d", uploader.calls)
	}
	if captures != 1 {
		t.Errorf("Expected 1 capture for same-day runs, got %d", captures)
	}
	if first != second {
		t.Errorf("Expected cached link %s, got %s", first, second)
	}
}

func TestEnsureLinkNewDateUploadsAgain(t *testing.T) {
	daily := &Daily{Dir: t.TempDir(), Now: fixedClock(2)}
	uploader := &fakeUploader{}
	captures := 0

	if _, err := daily.EnsureLink(context.Background(), capturePNG(&captures), uploader); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	daily.Now = fixedClock(3)
	if _, err := daily.EnsureLink(context.Background(), capturePNG(&captures), uploader); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if uploader.calls != 2 {
		t.Errorf("Expected 2 uploads across dates, got %d", uploader.calls)
	}
}

func TestEnsureLinkUploadFailureRemovesPNG(t *testing.T) {
	dir := t.TempDir()
	daily := &Daily{Dir: dir, Now: fixedClock(2)}
	captures := 0

	if _, err := daily.EnsureLink(context.Background(), capturePNG(&captures), &fakeUploader{err: errors.New("quota")}); err == nil {
		t.Fatal("Expected error, got nil")
	}

	pngPath := filepath.Join(dir, "leaderboard_2024-01-02.png")
	if _, err := os.Stat(pngPath); !os.IsNotExist(err) {
		t.Errorf("Expected PNG removed after failed upload, stat err: %v", err)
	}

	// The next run the same day recaptures and succeeds.
	uploader := &fakeUploader{}
	link, err := daily.EnsureLink(context.Background(), capturePNG(&captures), uploader)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if link == "" {
		t.Error("Expected a link after recovery")
	}
	if captures != 2 {
		t.Errorf("Expected 2 captures, got %d", captures)
	}
}
