package form

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"geoloc/internal/notify"
)

func TestAttachImageGalleryLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{name: "small", size: 1024},
		{name: "exactly 5 MiB", size: MaxGalleryBytes},
		{name: "one byte over", size: MaxGalleryBytes + 1, wantErr: ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &notify.Recorder{}
			f := New(rec)
			data := bytes.Repeat([]byte{0xff}, tt.size)

			err := f.AttachImage(Gallery, bytes.NewReader(data), int64(len(data)))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AttachImage() = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if f.Image() != "" {
					t.Error("rejected image changed the preview")
				}
				if rec.Count(notify.LevelError) != 1 {
					t.Errorf("notifications = %d, want 1", rec.Count(notify.LevelError))
				}
				return
			}
			if !strings.HasPrefix(f.Image(), "data:") {
				t.Errorf("image = %.40q, want a data URI", f.Image())
			}
		})
	}
}

func TestAttachImageUnderstatedSize(t *testing.T) {
	f := New(&notify.Recorder{})
	data := bytes.Repeat([]byte{1}, MaxGalleryBytes+10)
	if err := f.AttachImage(Gallery, bytes.NewReader(data), 10); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("AttachImage() = %v, want ErrImageTooLarge", err)
	}
}

func TestAttachImageCameraHasNoLimit(t *testing.T) {
	f := New(&notify.Recorder{})
	data := bytes.Repeat([]byte{1}, MaxGalleryBytes+1)
	if err := f.AttachImage(Camera, bytes.NewReader(data), int64(len(data))); err != nil {
		t.Errorf("AttachImage(camera) = %v", err)
	}
}

func TestAttachImageRequiresClear(t *testing.T) {
	f := New(&notify.Recorder{})
	if err := f.AttachImage(Gallery, strings.NewReader("GIF89a first"), 12); err != nil {
		t.Fatal(err)
	}
	first := f.Image()
	if err := f.AttachImage(Camera, strings.NewReader("second"), 6); !errors.Is(err, ErrImageAttached) {
		t.Fatalf("second AttachImage() = %v, want ErrImageAttached", err)
	}
	if f.Image() != first {
		t.Error("second attach replaced the image")
	}
	f.ClearImage()
	if err := f.AttachImage(Camera, strings.NewReader("second"), 6); err != nil {
		t.Errorf("AttachImage() after clear = %v", err)
	}
}

func TestDataURI(t *testing.T) {
	got := DataURI([]byte("GIF89a"))
	if got != "data:image/gif;base64,R0lGODlh" {
		t.Errorf("DataURI() = %q", got)
	}
	if got := DataURI([]byte("hello")); !strings.HasPrefix(got, "data:text/plain;base64,") {
		t.Errorf("DataURI(text) = %q", got)
	}
}

func TestParseSource(t *testing.T) {
	if s, err := ParseSource("camera"); err != nil || s != Camera {
		t.Errorf("ParseSource(camera) = %q, %v", s, err)
	}
	if s, err := ParseSource(""); err != nil || s != Gallery {
		t.Errorf("ParseSource('') = %q, %v", s, err)
	}
	if _, err := ParseSource("scanner"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("ParseSource(scanner) = %v", err)
	}
}
