// Package preview composites the ring overlay onto camera frames and
// encodes the result for streaming.
package preview

import (
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultQuality is the JPEG quality used for preview frames.
const DefaultQuality = 80

// MJPEGBoundary separates parts of a multipart/x-mixed-replace stream.
const MJPEGBoundary = "frame"

// Compose draws overlay over frame, then mirrors the result horizontally so
// the user sees themselves as in a mirror. The overlay is in unmirrored frame
// coordinates; a nil or empty overlay leaves the frame as is. The caller
// owns the returned Mat.
func Compose(frame *gocv.Mat, overlay *image.RGBA) (*gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame")
	}

	b := img.Bounds()
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, img, b.Min, draw.Src)
	if overlay != nil && !overlay.Bounds().Empty() {
		draw.Draw(canvas, b, overlay, b.Min, draw.Over)
	}

	composed, err := gocv.ImageToMatRGB(canvas)
	if err != nil {
		return nil, errors.Wrap(err, "convert composite")
	}
	defer composed.Close()

	mirrored := gocv.NewMat()
	gocv.Flip(composed, &mirrored, 1)
	if mirrored.Empty() {
		mirrored.Close()
		return nil, errors.New("mirror composite")
	}
	return &mirrored, nil
}

// EncodeJPEG compresses m at the given quality (1-100).
func EncodeJPEG(m *gocv.Mat, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Frame composes, mirrors and encodes one preview frame.
func Frame(frame *gocv.Mat, overlay *image.RGBA, quality int) ([]byte, error) {
	composed, err := Compose(frame, overlay)
	if err != nil {
		return nil, err
	}
	defer composed.Close()

	return EncodeJPEG(composed, quality)
}

// WritePart writes one JPEG as a part of an MJPEG stream.
func WritePart(w io.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", MJPEGBoundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
