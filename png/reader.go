package png

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/dlecorfec/imgcodec/pixel"
)

// Color type bytes, per ISO 15948 §6.1.
const (
	colorGrey           = 0
	colorTrueColor      = 2
	colorPalette        = 3
	colorGreyAlpha      = 4
	colorTrueColorAlpha = 6
)

func sampleCount(colorType byte) int {
	switch colorType {
	case colorGrey, colorPalette:
		return 1
	case colorGreyAlpha:
		return 2
	case colorTrueColor:
		return 3
	case colorTrueColorAlpha:
		return 4
	}
	return 0
}

// bitDepthAllowed reports whether bitDepth is legal for colorType, per the
// (colorType, bitDepth) matrix in spec.md §3.
func bitDepthAllowed(colorType, bitDepth byte) bool {
	switch colorType {
	case colorGrey:
		return bitDepth == 1 || bitDepth == 2 || bitDepth == 4 || bitDepth == 8 || bitDepth == 16
	case colorTrueColor, colorGreyAlpha, colorTrueColorAlpha:
		return bitDepth == 8 || bitDepth == 16
	case colorPalette:
		return bitDepth == 1 || bitDepth == 2 || bitDepth == 4 || bitDepth == 8
	}
	return false
}

// ihdr is the parsed image header chunk.
type ihdr struct {
	width, height     int
	bitDepth          byte
	colorType         byte
	compressionMethod byte
	filterMethod      byte
	interlaceMethod   byte
}

type decoder struct {
	ihdr    ihdr
	palette []pixel.RGB8 // indexed by palette sample value; nil unless a PLTE chunk was seen.
	idat    bytes.Buffer
}

// Decode reads a PNG stream per spec.md §4.2: signature check, CRC-checked
// chunk loop, IDAT concatenation + zlib inflate, per-scanline filter
// reconstruction (with Adam7 de-interlacing when present), bit-depth
// expansion, and color-type promotion to the narrowest lossless pixel
// type. Grounded on shutej-apng's chunk/CRC conventions for the wire
// format; the decode-side algorithm itself (absent from the write-only
// teacher pack) follows spec.md §4.2 directly.
func Decode(r io.Reader) (pixel.DynamicImage, error) {
	var sig [8]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return pixel.DynamicImage{}, ErrInvalidSignature.Errorf("reading signature: %v", err)
	}
	if sig != signature {
		return pixel.DynamicImage{}, ErrInvalidSignature.Errorf("got %v", sig)
	}

	d := &decoder{}
	cr := &chunkReader{r: r}

	first := true
	for {
		c, err := cr.next()
		if err != nil {
			return pixel.DynamicImage{}, errors.Wrap(err, "png: reading chunk")
		}
		if first {
			if c.typeString() != "IHDR" {
				return pixel.DynamicImage{}, ErrMalformedStream.Errorf("first chunk is %q, want IHDR", c.typeString())
			}
			if err := d.parseIHDR(c.data); err != nil {
				return pixel.DynamicImage{}, err
			}
			first = false
			continue
		}
		switch c.typeString() {
		case "PLTE":
			if err := d.parsePLTE(c.data); err != nil {
				return pixel.DynamicImage{}, err
			}
		case "IDAT":
			d.idat.Write(c.data)
		case "IEND":
			return d.assemble()
		default:
			// Ancillary chunk: CRC already verified by chunkReader.next, skip.
		}
	}
}

func (d *decoder) parseIHDR(data []byte) error {
	if len(data) != 13 {
		return ErrMalformedStream.Errorf("IHDR length %d, want 13", len(data))
	}
	h := ihdr{
		width:             int(binary.BigEndian.Uint32(data[0:4])),
		height:            int(binary.BigEndian.Uint32(data[4:8])),
		bitDepth:          data[8],
		colorType:         data[9],
		compressionMethod: data[10],
		filterMethod:      data[11],
		interlaceMethod:   data[12],
	}
	if h.width <= 0 || h.height <= 0 {
		return ErrMalformedStream.Errorf("non-positive dimensions %dx%d", h.width, h.height)
	}
	if !bitDepthAllowed(h.colorType, h.bitDepth) {
		return ErrUnsupportedIHDR.Errorf("color type %d with bit depth %d", h.colorType, h.bitDepth)
	}
	if h.compressionMethod != 0 || h.filterMethod != 0 {
		return ErrUnsupportedIHDR.Errorf("compression=%d filter=%d", h.compressionMethod, h.filterMethod)
	}
	if h.interlaceMethod != 0 && h.interlaceMethod != 1 {
		return ErrUnsupportedIHDR.Errorf("interlace method %d", h.interlaceMethod)
	}
	d.ihdr = h
	return nil
}

func (d *decoder) parsePLTE(data []byte) error {
	if len(data)%3 != 0 {
		return ErrMalformedStream.Errorf("PLTE length %d not a multiple of 3", len(data))
	}
	d.palette = make([]pixel.RGB8, len(data)/3)
	for i := range d.palette {
		d.palette[i] = pixel.RGB8{R: data[3*i], G: data[3*i+1], B: data[3*i+2]}
	}
	return nil
}

// assemble inflates the accumulated IDAT stream, reconstructs every
// scanline (across all seven Adam7 passes when interlaced), and builds the
// final image.
func (d *decoder) assemble() (pixel.DynamicImage, error) {
	if d.idat.Len() < 6 {
		return pixel.DynamicImage{}, ErrMalformedStream.Errorf("IDAT stream too short (%d bytes)", d.idat.Len())
	}
	zr, err := zlib.NewReader(bytes.NewReader(d.idat.Bytes()))
	if err != nil {
		return pixel.DynamicImage{}, ErrMalformedStream.Errorf("zlib: %v", err)
	}
	defer zr.Close()
	inflated, err := io.ReadAll(zr)
	if err != nil {
		return pixel.DynamicImage{}, ErrMalformedStream.Errorf("zlib inflate: %v", err)
	}

	if d.ihdr.colorType == colorPalette && d.palette == nil {
		return pixel.DynamicImage{}, ErrMissingPalette.Errorf("palette color type without PLTE")
	}

	n := sampleCount(d.ihdr.colorType)
	w, h := d.ihdr.width, d.ihdr.height
	samples := make([][]int, h) // samples[y] = n*w raw (post bit-expansion, pre color-map) sample values.

	buf := bytes.NewReader(inflated)
	if d.ihdr.interlaceMethod == 1 {
		for _, pass := range adam7Passes {
			pw, ph := pass.passDims(w, h)
			if pw == 0 || ph == 0 {
				continue
			}
			passSamples, err := readPass(buf, pw, ph, n, d.ihdr.bitDepth)
			if err != nil {
				return pixel.DynamicImage{}, err
			}
			for j := 0; j < ph; j++ {
				y := pass.startRow + j*pass.rowIncrement
				if samples[y] == nil {
					samples[y] = make([]int, n*w)
				}
				for k := 0; k < pw; k++ {
					x := pass.startCol + k*pass.colIncrement
					copy(samples[y][n*x:n*x+n], passSamples[j][n*k:n*k+n])
				}
			}
		}
	} else {
		passSamples, err := readPass(buf, w, h, n, d.ihdr.bitDepth)
		if err != nil {
			return pixel.DynamicImage{}, err
		}
		samples = passSamples
	}

	return d.toDynamicImage(samples)
}

// readPass reconstructs ph scanlines of pw pixels (each prefixed by a filter byte)
// from r, returning n(colorType)*pw expanded (8-bit-folded, but still raw
// sample/index values, not yet color-mapped) samples per row.
func readPass(r io.Reader, pw, ph, n int, bitDepth byte) ([][]int, error) {
	stride := max1(n * int(bitDepth) / 8)
	scanlineBytes := (int(bitDepth)*n*pw + 7) / 8

	rows := make([][]int, ph)
	var prev []byte
	for y := 0; y < ph; y++ {
		var ftByte [1]byte
		if _, err := io.ReadFull(r, ftByte[:]); err != nil {
			return nil, ErrMalformedStream.Errorf("reading filter byte: %v", err)
		}
		cur := make([]byte, scanlineBytes)
		if _, err := io.ReadFull(r, cur); err != nil {
			return nil, ErrMalformedStream.Errorf("reading scanline: %v", err)
		}
		if err := unfilterRow(ftByte[0], cur, prev, stride); err != nil {
			return nil, err
		}
		rows[y] = expandSamples(cur, bitDepth, n*pw)
		prev = cur
	}
	return rows, nil
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// expandSamples unpacks count samples from a reconstructed scanline per
// bitDepth, per spec.md §4.2's bit-depth expansion rule (MSB-first bit
// splitting for depth<8, big-endian 16-bit folded via floor(v*255/65535)).
func expandSamples(row []byte, bitDepth byte, count int) []int {
	out := make([]int, count)
	switch bitDepth {
	case 1, 2, 4:
		perByte := 8 / int(bitDepth)
		mask := (1 << bitDepth) - 1
		for i := 0; i < count; i++ {
			b := row[i/perByte]
			shift := uint(8 - bitDepth) - uint(i%perByte)*uint(bitDepth)
			out[i] = int(b>>shift) & mask
		}
	case 8:
		for i := 0; i < count; i++ {
			out[i] = int(row[i])
		}
	case 16:
		for i := 0; i < count; i++ {
			v := uint32(row[2*i])<<8 | uint32(row[2*i+1])
			out[i] = int(v * 255 / 65535)
		}
	}
	return out
}

// toDynamicImage applies color-type->pixel-type promotion (spec.md §4.2)
// to the per-row raw samples and wraps the result in a DynamicImage.
func (d *decoder) toDynamicImage(samples [][]int) (pixel.DynamicImage, error) {
	w, h := d.ihdr.width, d.ihdr.height
	switch d.ihdr.colorType {
	case colorGrey:
		levelScale := 255
		if d.ihdr.bitDepth < 8 {
			levelScale = 255 / ((1 << d.ihdr.bitDepth) - 1)
		}
		img := pixel.NewMutableImage[pixel.Y8](w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := samples[y][x]
				if d.ihdr.bitDepth < 8 {
					v *= levelScale
				}
				img.WritePixel(x, y, pixel.Y8{Y: uint8(v)})
			}
		}
		return pixel.FromY8(img.Freeze()), nil

	case colorGreyAlpha:
		img := pixel.NewMutableImage[pixel.YA8](w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := samples[y][2*x : 2*x+2]
				img.WritePixel(x, y, pixel.YA8{Y: uint8(s[0]), A: uint8(s[1])})
			}
		}
		return pixel.FromYA8(img.Freeze()), nil

	case colorTrueColor:
		img := pixel.NewMutableImage[pixel.RGB8](w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := samples[y][3*x : 3*x+3]
				img.WritePixel(x, y, pixel.RGB8{R: uint8(s[0]), G: uint8(s[1]), B: uint8(s[2])})
			}
		}
		return pixel.FromRGB8(img.Freeze()), nil

	case colorTrueColorAlpha:
		img := pixel.NewMutableImage[pixel.RGBA8](w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := samples[y][4*x : 4*x+4]
				img.WritePixel(x, y, pixel.RGBA8{R: uint8(s[0]), G: uint8(s[1]), B: uint8(s[2]), A: uint8(s[3])})
			}
		}
		return pixel.FromRGBA8(img.Freeze()), nil

	case colorPalette:
		img := pixel.NewMutableImage[pixel.RGB8](w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				idx := samples[y][x]
				if idx < 0 || idx >= len(d.palette) {
					return pixel.DynamicImage{}, ErrMalformedStream.Errorf("palette index %d out of range [0,%d)", idx, len(d.palette))
				}
				img.WritePixel(x, y, d.palette[idx])
			}
		}
		return pixel.FromRGB8(img.Freeze()), nil
	}
	return pixel.DynamicImage{}, ErrUnsupportedIHDR.Errorf("color type %d", d.ihdr.colorType)
}
