// Package imgcodec is the format-agnostic codec surface over png and
// jpeg: Decode sniffs the container format from the stream's leading
// bytes and dispatches to the matching package, DecodeAs additionally
// promotes the result into a caller-chosen pixel type, and EncodePNG/
// EncodeJPEG are thin wrappers so callers need not import png/jpeg
// directly for the common case. Grounded on every example codec's
// top-level Decode(io.Reader)/Encode(io.Writer, ...) surface (stdlib
// image.Decode, shutej-apng, google-wuffs).
package imgcodec

import (
	"bufio"
	"io"

	"github.com/dlecorfec/imgcodec/jpeg"
	"github.com/dlecorfec/imgcodec/pixel"
	"github.com/dlecorfec/imgcodec/png"
)

var pngSignature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Decode sniffs r's leading bytes and decodes it as PNG or JPEG,
// whichever the signature matches, per spec.md §6.
func Decode(r io.Reader) (pixel.DynamicImage, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(8)
	switch {
	case len(head) == 8 && [8]byte(head) == pngSignature:
		return png.Decode(br)
	case len(head) >= 2 && head[0] == 0xff && head[1] == 0xd8:
		return jpeg.Decode(br)
	case err != nil && err != io.EOF:
		return pixel.DynamicImage{}, err
	default:
		return pixel.DynamicImage{}, ErrUnknownFormat.Errorf("got %d leading bytes", len(head))
	}
}

// DecodeAs decodes r and promotes the result into Image[P] via the
// lossless promotion DAG (pixel.Promote), failing with
// pixel.ErrIncompatiblePromotion if P is not reachable from the decoded
// image's native pixel type.
func DecodeAs[P pixel.Pixel](r io.Reader) (pixel.Image[P], error) {
	dyn, err := Decode(r)
	if err != nil {
		return pixel.Image[P]{}, err
	}
	switch dyn.Kind() {
	case pixel.KindY8:
		img, _ := dyn.Y8()
		return promoteImage[pixel.Y8, P](img)
	case pixel.KindYA8:
		img, _ := dyn.YA8()
		return promoteImage[pixel.YA8, P](img)
	case pixel.KindRGB8:
		img, _ := dyn.RGB8()
		return promoteImage[pixel.RGB8, P](img)
	case pixel.KindRGBA8:
		img, _ := dyn.RGBA8()
		return promoteImage[pixel.RGBA8, P](img)
	case pixel.KindYCbCr8:
		img, _ := dyn.YCbCr8()
		return promoteImage[pixel.YCbCr8, P](img)
	default:
		return pixel.Image[P]{}, ErrUnknownFormat.Errorf("decoded image has no recognized pixel kind")
	}
}

// promoteImage applies pixel.Promote across every pixel of src. The
// promotion DAG's reachability depends only on the (A,B) type pair, not
// on pixel values, so a single zero-value check up front avoids mapping
// the whole image only to discover every pixel fails identically.
func promoteImage[A, B pixel.Pixel](src *pixel.Image[A]) (pixel.Image[B], error) {
	var zero A
	if _, err := pixel.Promote[A, B](zero); err != nil {
		return pixel.Image[B]{}, err
	}
	dst := pixel.Map(src, func(p A) B {
		v, _ := pixel.Promote[A, B](p)
		return v
	})
	return *dst, nil
}

// EncodePNG writes img as a PNG using png's default encode options
// (FilterNone, DefaultCompression).
func EncodePNG[P png.Encodable](w io.Writer, img pixel.Image[P]) error {
	return png.Encode(w, &img, nil)
}

// DecodeJPEG decodes r as a baseline sequential JPEG.
func DecodeJPEG(r io.Reader) (pixel.DynamicImage, error) {
	return jpeg.Decode(r)
}

// EncodeJPEG writes img as a baseline sequential, 4:2:0-subsampled JPEG
// at the given quality (1-100).
func EncodeJPEG(w io.Writer, img pixel.Image[pixel.YCbCr8], quality int) error {
	return jpeg.Encode(w, &img, quality)
}
