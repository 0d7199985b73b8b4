package jpeg

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlecorfec/imgcodec/internal/fdctidct"
	"github.com/dlecorfec/imgcodec/pixel"
)

func bufioReaderOf(b []byte) *bufio.Reader {
	return bufio.NewReader(bytes.NewReader(b))
}

func uniformGray(w, h int, v uint8) *pixel.Image[pixel.Y8] {
	img := pixel.NewMutableImage[pixel.Y8](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.WritePixel(x, y, pixel.Y8{Y: v})
		}
	}
	return img.Freeze()
}

func uniformYCbCr(w, h int, y, cb, cr uint8) *pixel.Image[pixel.YCbCr8] {
	img := pixel.NewMutableImage[pixel.YCbCr8](w, h)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			img.WritePixel(i, j, pixel.YCbCr8{Y: y, Cb: cb, Cr: cr})
		}
	}
	return img.Freeze()
}

func TestUniformGreyJPEG(t *testing.T) {
	src := uniformGray(16, 16, 128)
	var buf bytes.Buffer
	require.NoError(t, EncodeGray(&buf, src, 90))

	out, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, pixel.KindY8, out.Kind())

	got, _ := out.Y8()
	require.Equal(t, 16, got.Width())
	require.Equal(t, 16, got.Height())
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			assert.InDelta(t, 128, int(got.PixelAt(x, y).Y), 3, "pixel (%d,%d)", x, y)
		}
	}
}

func TestUniformColorJPEGRoundTrip(t *testing.T) {
	src := uniformYCbCr(24, 24, 150, 120, 140)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, 90))

	out, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, pixel.KindYCbCr8, out.Kind())
	got, _ := out.YCbCr8()
	p := got.PixelAt(12, 12)
	assert.InDelta(t, 150, int(p.Y), 4)
	assert.InDelta(t, 120, int(p.Cb), 4)
	assert.InDelta(t, 140, int(p.Cr), 4)
}

func TestNonMultipleOf8Dimensions(t *testing.T) {
	src := uniformGray(10, 6, 64)
	var buf bytes.Buffer
	require.NoError(t, EncodeGray(&buf, src, 85))

	out, err := Decode(&buf)
	require.NoError(t, err)
	got, _ := out.Y8()
	assert.Equal(t, 10, got.Width())
	assert.Equal(t, 6, got.Height())
}

func TestInvalidSignatureRejected(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMissingRestartMarkerFails(t *testing.T) {
	src := uniformGray(64, 64, 200)
	var buf bytes.Buffer
	require.NoError(t, EncodeGray(&buf, src, 80))
	encoded := buf.Bytes()

	// Splice a DRI segment declaring restarts every MCU into the stream
	// right after SOI, then feed the (unmodified) entropy data through:
	// since the encoder never emitted RSTm markers, the decoder must
	// detect the missing restart rather than silently misinterpreting
	// the following scan bytes.
	var spliced bytes.Buffer
	spliced.Write(encoded[:2]) // SOI
	spliced.Write([]byte{0xff, markerDRI, 0x00, 0x04, 0x00, 0x01})
	spliced.Write(encoded[2:])

	_, err := Decode(&spliced)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRestart)
}

func TestMultiMCUGrayRoundTrip(t *testing.T) {
	// A plain multi-MCU image (no DRI) already exercises multi-block DC
	// prediction; it says nothing about restart resync itself.
	src := uniformGray(64, 64, 77)
	var buf bytes.Buffer
	require.NoError(t, EncodeGray(&buf, src, 80))
	out, err := Decode(&buf)
	require.NoError(t, err)
	got, _ := out.Y8()
	assert.InDelta(t, 77, int(got.PixelAt(40, 40).Y), 3)
}

// encodeGrayWithRestarts is writeSOSGray plus genuine DRI/RSTm emission:
// the exported Encode/EncodeGray API has no restart-interval option, so
// exercising the decoder's resync branch (reader.go's handling around the
// restartInterval check in decodeScan) requires driving the low-level
// encoder directly, the same way writer.go's own writeSOSGray does.
func encodeGrayWithRestarts(w io.Writer, img *pixel.Image[pixel.Y8], quality, restartInterval int) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, quant: scaledQuant(quality)}
	e.writeSOI()
	e.writeDQT1()
	e.writeSOF(img.Width(), img.Height(), 1, markerSOF0)
	e.writeDHT(1)
	e.writeMarkerHeader(markerDRI, 4)
	e.writeByte(byte(restartInterval >> 8))
	e.writeByte(byte(restartInterval))
	e.write([]byte{0xff, markerSOS, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3f, 0x00})
	if e.err != nil {
		return e.err
	}

	e.bw = newBitWriter(e.w)
	var prevDC int32
	width, height := img.Width(), img.Height()
	mcusPerLine, mcusPerCol := width/8, height/8
	totalMCUs := mcusPerLine * mcusPerCol
	mcu, restartCount := 0, 0
	for by := 0; by < height; by += 8 {
		for bx := 0; bx < width; bx += 8 {
			var blk fdctidct.Block
			fillGrayBlock(img, bx, by, &blk)
			prevDC = e.writeBlock(&blk, quantIndexLuminance, huffIndexLuminanceDC, huffIndexLuminanceAC, prevDC)
			mcu++
			if restartInterval > 0 && mcu%restartInterval == 0 && mcu < totalMCUs {
				if err := e.bw.flush(); err != nil {
					return err
				}
				e.write([]byte{0xff, markerRST0 + byte(restartCount%8)})
				restartCount++
				e.bw = newBitWriter(e.w)
				prevDC = 0
			}
		}
	}
	if err := e.bw.flush(); err != nil {
		return err
	}
	if e.err != nil {
		return e.err
	}
	e.writeEOI()
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

func TestRestartMarkerResyncRoundTrip(t *testing.T) {
	src := uniformGray(64, 64, 77)

	var plain bytes.Buffer
	require.NoError(t, EncodeGray(&plain, src, 80))
	plainOut, err := Decode(&plain)
	require.NoError(t, err)
	plainY, _ := plainOut.Y8()

	var restarted bytes.Buffer
	require.NoError(t, encodeGrayWithRestarts(&restarted, src, 80, 3))
	restartedOut, err := Decode(&restarted)
	require.NoError(t, err)
	restartedY, _ := restartedOut.Y8()

	require.Equal(t, plainY.Width(), restartedY.Width())
	require.Equal(t, plainY.Height(), restartedY.Height())
	for y := 0; y < plainY.Height(); y++ {
		for x := 0; x < plainY.Width(); x++ {
			assert.Equal(t, plainY.PixelAt(x, y), restartedY.PixelAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestUnsupportedComponentCount(t *testing.T) {
	// Four-component (CMYK) SOF is outside the declared scope (§4.4).
	payload := []byte{8, 0, 4, 0, 4, 4,
		1, 0x11, 0, 2, 0x11, 0, 3, 0x11, 0, 4, 0x11, 0}
	length := len(payload) + 2
	seg := append([]byte{byte(length >> 8), byte(length)}, payload...)

	d := &decoder{r: bufioReaderOf(seg)}
	err := d.processSOF()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedComponents)
}

func TestZigZagIsInvolution(t *testing.T) {
	for i := 0; i < blockSize; i++ {
		assert.Equal(t, i, zig[unzig[i]])
	}
}

func TestHuffmanDecodeRoundTrip(t *testing.T) {
	spec := theHuffmanSpec[huffIndexLuminanceDC]
	h, err := buildHuffman(spec.count, spec.value)
	require.NoError(t, err)
	table := buildEncodeTable(spec)

	for _, symbol := range spec.value {
		c := table[symbol]
		bits := make([]int, 0, c.length)
		for i := int(c.length) - 1; i >= 0; i-- {
			bits = append(bits, int((c.code>>uint(i))&1))
		}
		pos := 0
		got, err := h.decode(func() (int, error) {
			b := bits[pos]
			pos++
			return b, nil
		})
		require.NoError(t, err)
		assert.Equal(t, symbol, got)
	}
}

func TestErrorKindsAreDistinguishable(t *testing.T) {
	err := ErrMalformedStream.Errorf("detail %d", 7)
	assert.True(t, errors.Is(err, ErrMalformedStream))
	assert.False(t, errors.Is(err, ErrTruncated))
}

func TestEncodeProgressiveWritesSOF2(t *testing.T) {
	src := uniformYCbCr(32, 16, 100, 110, 130)
	var buf bytes.Buffer
	require.NoError(t, EncodeProgressive(&buf, src, nil))

	b := buf.Bytes()
	require.True(t, len(b) > 4)
	assert.Equal(t, []byte{0xff, markerSOI}, b[:2])

	var sawSOF2 bool
	for i := 2; i+1 < len(b); i++ {
		if b[i] != 0xff {
			continue
		}
		if b[i+1] == markerSOF2 {
			sawSOF2 = true
		}
	}
	assert.True(t, sawSOF2, "expected an SOF2 marker in progressive output")

	// Decode rejects progressive streams outright rather than
	// misinterpreting the multi-scan entropy data as baseline.
	_, err := Decode(bytes.NewReader(b))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestEncodeProgressiveCustomScanScript(t *testing.T) {
	src := uniformYCbCr(16, 16, 50, 128, 128)
	var buf bytes.Buffer
	// DefaultGrayscaleScanScript only addresses component 0, which is
	// valid for any image regardless of its other components' content.
	opts := &ProgressiveOptions{Quality: 60, ScanScript: DefaultGrayscaleScanScript()}
	require.NoError(t, EncodeProgressive(&buf, src, opts))
}

func TestProgressiveScanScriptValidation(t *testing.T) {
	src := uniformYCbCr(16, 16, 10, 20, 30)
	bad := &ProgressiveOptions{ScanScript: ScanScript{{Component: 5, SpectralStart: 0, SpectralEnd: 0}}}
	err := EncodeProgressive(&bytes.Buffer{}, src, bad)
	require.Error(t, err)
}
