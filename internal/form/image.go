package form

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Source says how an image was picked.
type Source string

const (
	Gallery Source = "gallery"
	Camera  Source = "camera"
)

// MaxGalleryBytes caps files picked from the gallery. Camera captures are not
// capped.
const MaxGalleryBytes = 5 * 1024 * 1024

const msgImageTooLarge = "The image must not exceed 5MB"

// ParseSource maps a request value onto a Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case Gallery, "":
		return Gallery, nil
	case Camera:
		return Camera, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// AttachImage reads the whole file and stores it as a data URI, which is both
// the preview and the value sent with the place. size is the length the
// client declared for the file.
func (f *Form) AttachImage(src Source, r io.Reader, size int64) error {
	if src != Gallery && src != Camera {
		return fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
	if src == Gallery && size > MaxGalleryBytes {
		f.notifier.Error(msgImageTooLarge)
		return fmt.Errorf("%w: %d bytes", ErrImageTooLarge, size)
	}

	f.mu.Lock()
	attached := f.image != ""
	f.mu.Unlock()
	if attached {
		return ErrImageAttached
	}

	if src == Gallery {
		r = io.LimitReader(r, MaxGalleryBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return ErrImageEmpty
	}
	if src == Gallery && len(data) > MaxGalleryBytes {
		f.notifier.Error(msgImageTooLarge)
		return fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, MaxGalleryBytes)
	}

	uri := DataURI(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image != "" {
		return ErrImageAttached
	}
	f.image = uri
	return nil
}

// ClearImage drops the attached image and its preview.
func (f *Form) ClearImage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.image = ""
}

// Image returns the attached data URI, or "".
func (f *Form) Image() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image
}

// DataURI encodes data as a base64 data URI with a sniffed media type.
func DataURI(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	var b bytes.Buffer
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
