package png

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dlecorfec/imgcodec/pixel"
)

// buildPNG assembles a complete PNG byte stream from already-prepared
// chunk payloads, zlib-compressing raw (filter-byte-prefixed scanlines)
// into the single IDAT chunk. Grounded on the AMBIENT STACK's guidance to
// build decoder test fixtures with compress/zlib rather than hand-rolled
// deflate bytes.
func buildPNG(t *testing.T, ihdrData, plte, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(signature[:])
	require.NoError(t, writeChunk(&buf, "IHDR", ihdrData))
	if plte != nil {
		require.NoError(t, writeChunk(&buf, "PLTE", plte))
	}

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, writeChunk(&buf, "IDAT", idat.Bytes()))
	require.NoError(t, writeChunk(&buf, "IEND", nil))
	return buf.Bytes()
}

func ihdrBytes(w, h int, bitDepth, colorType byte, interlace byte) []byte {
	var data [13]byte
	binary.BigEndian.PutUint32(data[0:4], uint32(w))
	binary.BigEndian.PutUint32(data[4:8], uint32(h))
	data[8] = bitDepth
	data[9] = colorType
	data[10] = 0
	data[11] = 0
	data[12] = interlace
	return data[:]
}

// Test1x1RGBRoundTrip is spec.md §8's first seed scenario: a single-pixel
// RGB image survives Encode followed by Decode unchanged.
func Test1x1RGBRoundTrip(t *testing.T) {
	src := pixel.NewMutableImage[pixel.RGB8](1, 1)
	src.WritePixel(0, 0, pixel.RGB8{R: 12, G: 200, B: 77})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src.Freeze(), nil))

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, pixel.KindRGB8, got.Kind())
	rgb, ok := got.RGB8()
	require.True(t, ok)
	require.Equal(t, 1, rgb.Width())
	require.Equal(t, 1, rgb.Height())
	require.Equal(t, pixel.RGB8{R: 12, G: 200, B: 77}, rgb.PixelAt(0, 0))
}

// TestRGBARoundTripAdaptiveFilter exercises the FilterAdaptive path across
// a small gradient image, round-tripping through Encode/Decode.
func TestRGBARoundTripAdaptiveFilter(t *testing.T) {
	const w, h = 6, 5
	src := pixel.NewMutableImage[pixel.RGBA8](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.WritePixel(x, y, pixel.RGBA8{
				R: uint8(10 * x), G: uint8(10 * y), B: uint8(x + y), A: 255,
			})
		}
	}

	var buf bytes.Buffer
	opts := &EncodeOptions{Filter: FilterAdaptive, Compression: BestCompression}
	require.NoError(t, Encode(&buf, src.Freeze(), opts))

	got, err := Decode(&buf)
	require.NoError(t, err)
	rgba, ok := got.RGBA8()
	require.True(t, ok)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, src.ReadPixel(x, y), rgba.PixelAt(x, y), "(%d,%d)", x, y)
		}
	}
}

// TestCheckerboardPalette1Bit is spec.md §8's palette seed scenario: a 4x4
// 1-bit palette image, alternating indices 1/0 per row, decodes to the
// corresponding RGB8 checkerboard via the PLTE lookup.
func TestCheckerboardPalette1Bit(t *testing.T) {
	ihdr := ihdrBytes(4, 4, 1, colorPalette, 0)
	plte := []byte{
		0, 0, 0, // index 0: black
		255, 255, 255, // index 1: white
	}
	// Each row packs 4 1-bit samples into the top nibble of one byte,
	// MSB-first, preceded by a None filter byte.
	raw := []byte{
		filterNone, 0xA0, // 1,0,1,0
		filterNone, 0x50, // 0,1,0,1
		filterNone, 0xA0, // 1,0,1,0
		filterNone, 0x50, // 0,1,0,1
	}

	data := buildPNG(t, ihdr, plte, raw)
	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, pixel.KindRGB8, got.Kind())
	rgb, ok := got.RGB8()
	require.True(t, ok)

	black := pixel.RGB8{R: 0, G: 0, B: 0}
	white := pixel.RGB8{R: 255, G: 255, B: 255}
	wantIndex := [4][4]int{
		{1, 0, 1, 0},
		{0, 1, 0, 1},
		{1, 0, 1, 0},
		{0, 1, 0, 1},
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := black
			if wantIndex[y][x] == 1 {
				want = white
			}
			require.Equal(t, want, rgb.PixelAt(x, y), "(%d,%d)", x, y)
		}
	}
}

// TestGreyscale4BitTruncatedRow is spec.md §8's bit-depth-expansion seed
// scenario: a 3-pixel-wide, 4-bit greyscale row doesn't fill its last
// byte (3*4=12 bits needs 2 bytes, wasting the low nibble of the second),
// and each sample is scaled from its 4-bit level to 8-bit via
// floor(v*255/15).
func TestGreyscale4BitTruncatedRow(t *testing.T) {
	ihdr := ihdrBytes(3, 1, 4, colorGrey, 0)
	// samples 0, 7, 15 packed MSB-first: byte0 = 0<<4|7, byte1 = 15<<4|0(pad).
	raw := []byte{filterNone, 0x07, 0xF0}

	data := buildPNG(t, ihdr, nil, raw)
	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, pixel.KindY8, got.Kind())
	y8, ok := got.Y8()
	require.True(t, ok)

	require.Equal(t, pixel.Y8{Y: 0}, y8.PixelAt(0, 0))
	require.Equal(t, pixel.Y8{Y: 7 * 17}, y8.PixelAt(1, 0))
	require.Equal(t, pixel.Y8{Y: 15 * 17}, y8.PixelAt(2, 0))
}

// TestDecodeRejectsBadSignature checks the first defensive gate: a stream
// not starting with the 8-byte PNG signature is rejected outright.
func TestDecodeRejectsBadSignature(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a png file at all...")))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

// TestDecodeRejectsPaletteWithoutPLTE checks that a palette-color-type
// IHDR with no PLTE chunk fails with ErrMissingPalette rather than
// silently producing black pixels.
func TestDecodeRejectsPaletteWithoutPLTE(t *testing.T) {
	ihdr := ihdrBytes(1, 1, 8, colorPalette, 0)
	raw := []byte{filterNone, 0}
	data := buildPNG(t, ihdr, nil, raw)
	_, err := Decode(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrMissingPalette)
}

// TestInterlacedRoundTrip builds an Adam7-interlaced fixture by hand
// (seven independently-filtered passes over an 8x8 greyscale image) and
// checks every pixel decodes to its expected value.
func TestInterlacedRoundTrip(t *testing.T) {
	const w, h = 8, 8
	val := func(x, y int) byte { return byte(x*8 + y) }

	var raw bytes.Buffer
	for _, pass := range adam7Passes {
		pw, ph := pass.passDims(w, h)
		for j := 0; j < ph; j++ {
			raw.WriteByte(filterNone)
			for k := 0; k < pw; k++ {
				x := pass.startCol + k*pass.colIncrement
				y := pass.startRow + j*pass.rowIncrement
				raw.WriteByte(val(x, y))
			}
		}
	}

	ihdr := ihdrBytes(w, h, 8, colorGrey, 1)
	data := buildPNG(t, ihdr, nil, raw.Bytes())
	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	y8, ok := got.Y8()
	require.True(t, ok)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, pixel.Y8{Y: val(x, y)}, y8.PixelAt(x, y), "(%d,%d)", x, y)
		}
	}
}
