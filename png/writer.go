package png

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/dlecorfec/imgcodec/pixel"
)

// Encodable is the set of pixel types the encoder accepts, per spec.md
// §4.3: 8-bit greyscale, RGB, and RGBA.
type Encodable interface {
	pixel.Y8 | pixel.RGB8 | pixel.RGBA8
}

// FilterMode selects the encoder's per-scanline filter strategy.
type FilterMode int

const (
	// FilterNone emits every scanline with the None filter (filter byte
	// 0), matching spec.md §4.3's default encoder behavior exactly.
	FilterNone FilterMode = iota
	// FilterAdaptive runs the minimum-sum-of-absolute-differences filter
	// selection heuristic per scanline, grounded on shutej-apng's
	// filter(). Additive: spec.md's default path is FilterNone.
	FilterAdaptive
)

// CompressionLevel selects a zlib compression effort. Grounded on
// shutej-apng's CompressionLevel type: its zero value means "use zlib's
// default", which compress/zlib's own level constants cannot represent
// (zlib.DefaultCompression is -1, not 0) without this indirection.
type CompressionLevel int

const (
	DefaultCompression CompressionLevel = 0
	NoCompression      CompressionLevel = -1
	BestSpeed          CompressionLevel = -2
	BestCompression    CompressionLevel = -3
)

func (l CompressionLevel) zlib() int {
	switch l {
	case NoCompression:
		return zlib.NoCompression
	case BestSpeed:
		return zlib.BestSpeed
	case BestCompression:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}

// EncodeOptions configures Encode. The zero value is spec.md §4.3's
// default: FilterNone, DefaultCompression.
type EncodeOptions struct {
	Filter      FilterMode
	Compression CompressionLevel
}

func colorTypeFor[P Encodable]() (colorType byte, n int) {
	var zero P
	switch any(zero).(type) {
	case pixel.Y8:
		return colorGrey, 1
	case pixel.RGB8:
		return colorTrueColor, 3
	case pixel.RGBA8:
		return colorTrueColorAlpha, 4
	}
	panic("png: unreachable Encodable type")
}

// Encode writes img as an 8-bit PNG, interlace=None, per spec.md §4.3:
// signature, IHDR, a single IDAT (zlib-wrapped scanlines), IEND, each
// chunk CRC-32'd. Grounded on shutej-apng's writeChunkTo/writeImage
// structure, generalized from image.Image/color.Color to pixel.Image[P]
// and from always-None to the additional FilterAdaptive option.
func Encode[P Encodable](w io.Writer, img *pixel.Image[P], opts *EncodeOptions) error {
	var o EncodeOptions
	if opts != nil {
		o = *opts
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(signature[:]); err != nil {
		return errors.Wrap(err, "png: writing signature")
	}

	colorType, n := colorTypeFor[P]()
	if err := writeIHDR(bw, img.Width(), img.Height(), colorType); err != nil {
		return err
	}

	idat, err := encodeIDAT(img, n, o.Filter, o.Compression.zlib())
	if err != nil {
		return err
	}
	if err := writeChunk(bw, "IDAT", idat); err != nil {
		return err
	}
	if err := writeChunk(bw, "IEND", nil); err != nil {
		return err
	}
	return bw.Flush()
}

func writeIHDR(w io.Writer, width, height int, colorType byte) error {
	var data [13]byte
	binary.BigEndian.PutUint32(data[0:4], uint32(width))
	binary.BigEndian.PutUint32(data[4:8], uint32(height))
	data[8] = 8 // bit depth
	data[9] = colorType
	data[10] = 0 // compression method
	data[11] = 0 // filter method
	data[12] = 0 // interlace method
	return writeChunk(w, "IHDR", data[:])
}

// encodeIDAT zlib-compresses the filtered scanlines of img (n components
// per pixel) and returns the compressed bytes for a single IDAT chunk.
func encodeIDAT[P Encodable](img *pixel.Image[P], n int, mode FilterMode, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "png: zlib.NewWriterLevel")
	}

	w, h := img.Width(), img.Height()
	data := img.Data()
	stride := n * w
	prev := make([]byte, stride)
	cur := make([]byte, stride)
	filtered := make([]byte, stride)

	for y := 0; y < h; y++ {
		copy(cur, data[y*stride:(y+1)*stride])

		var ft byte
		switch mode {
		case FilterAdaptive:
			ft = chooseFilter(cur, prev, n, filtered)
		default:
			ft = filterNone
			copy(filtered, cur)
		}

		if _, err := zw.Write([]byte{ft}); err != nil {
			return nil, errors.Wrap(err, "png: writing filter byte")
		}
		if _, err := zw.Write(filtered); err != nil {
			return nil, errors.Wrap(err, "png: writing scanline")
		}

		prev, cur = cur, prev
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "png: closing zlib writer")
	}
	return buf.Bytes(), nil
}
