package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Uploads stores images under Dir and serves them from /uploads.
type Uploads struct {
	Dir      string
	MaxBytes int64
}

// saveImage stores the multipart file in field under a random name and
// returns its public path.  The type is sniffed from the content, not
// trusted from the client.
func (u Uploads) saveImage(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", invalid(field + " file is required")
	}
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return "", invalid(fmt.Sprintf("%s must be at most %d bytes", field, u.MaxBytes))
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", invalid(field + " could not be read")
	}
	ext, ok := imageExt[http.DetectContentType(head[:n])]
	if !ok {
		return "", invalid(field + " must be a JPEG, PNG, WebP or GIF image")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(u.Dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return "/uploads/" + name, nil
}
