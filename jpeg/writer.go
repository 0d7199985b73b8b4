package jpeg

import (
	"bufio"
	"io"

	"github.com/dlecorfec/imgcodec/internal/fdctidct"
	"github.com/dlecorfec/imgcodec/pixel"
)

// Encode writes img as a baseline sequential JPEG at the given quality
// (1-100, clamped), using 4:2:0 chroma subsampling (Y sampled 2x2 per
// MCU, Cb/Cr each 1x1, chroma averaged over each 2x2 pixel group).
// Grounded on the teacher's writer.go Encode/writeSOF/writeDQT/writeDHT/
// writeSOS/writeBlock/scale, adapted from image.Image to
// pixel.Image[YCbCr8].
func Encode(w io.Writer, img *pixel.Image[pixel.YCbCr8], quality int) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, quant: scaledQuant(quality)}
	e.writeSOI()
	e.writeDQT()
	e.writeSOF(img.Width(), img.Height(), 3, markerSOF0)
	e.writeDHT(3)
	if err := e.writeSOSColor(img); err != nil {
		return err
	}
	e.writeEOI()
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// EncodeGray writes img as a single-component baseline sequential JPEG.
func EncodeGray(w io.Writer, img *pixel.Image[pixel.Y8], quality int) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, quant: scaledQuant(quality)}
	e.writeSOI()
	e.writeDQT1()
	e.writeSOF(img.Width(), img.Height(), 1, markerSOF0)
	e.writeDHT(1)
	if err := e.writeSOSGray(img); err != nil {
		return err
	}
	e.writeEOI()
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

type encoder struct {
	w     *bufio.Writer
	bw    *bitWriter
	quant [nQuantIndex][blockSize]byte
	huff  [nHuffIndex][256]huffCode
	err   error
}

func (e *encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeMarkerHeader(marker byte, length int) {
	e.write([]byte{0xff, marker, byte(length >> 8), byte(length)})
}

func (e *encoder) writeSOI() { e.write([]byte{0xff, markerSOI}) }
func (e *encoder) writeEOI() { e.write([]byte{0xff, markerEOI}) }

func (e *encoder) writeDQT() {
	const length = 2 + int(nQuantIndex)*(1+blockSize)
	e.writeMarkerHeader(markerDQT, length)
	for i := range e.quant {
		e.writeByte(byte(i))
		e.write(e.quant[i][:])
	}
}

func (e *encoder) writeDQT1() {
	const length = 2 + 1*(1+blockSize)
	e.writeMarkerHeader(markerDQT, length)
	e.writeByte(0)
	e.write(e.quant[quantIndexLuminance][:])
}

func (e *encoder) writeSOF(width, height, nComp int, marker byte) {
	length := 8 + 3*nComp
	e.writeMarkerHeader(marker, length)
	var hdr [13]byte
	hdr[0] = 8
	hdr[1], hdr[2] = byte(height>>8), byte(height)
	hdr[3], hdr[4] = byte(width>>8), byte(width)
	hdr[5] = byte(nComp)
	if nComp == 1 {
		hdr[6], hdr[7], hdr[8] = 1, 0x11, 0
		e.write(hdr[:9])
		return
	}
	samplingFactor := []byte{0x22, 0x11, 0x11} // 4:2:0: Y at 2x2, Cb/Cr at 1x1.
	for i := 0; i < nComp; i++ {
		hdr[6+3*i] = byte(i + 1)
		hdr[7+3*i] = samplingFactor[i]
		if i == 0 {
			hdr[8+3*i] = 0
		} else {
			hdr[8+3*i] = 1
		}
	}
	e.write(hdr[:6+3*nComp])
}

func (e *encoder) writeDHT(nComp int) {
	specs := theHuffmanSpec[:]
	if nComp == 1 {
		specs = specs[:2]
	}
	length := 2
	for _, s := range specs {
		length += 1 + 16 + len(s.value)
	}
	e.writeMarkerHeader(markerDHT, length)
	classAndID := []byte{0x00, 0x10, 0x01, 0x11}
	for i, s := range specs {
		e.writeByte(classAndID[i])
		e.write(s.count[:])
		e.write(s.value)
		e.huff[i] = buildEncodeTable(s)
	}
}

func (e *encoder) writeSOSColor(img *pixel.Image[pixel.YCbCr8]) error {
	e.write([]byte{
		0xff, markerSOS, 0x00, 0x0c, 0x03,
		0x01, 0x00, 0x02, 0x11, 0x03, 0x11,
		0x00, 0x3f, 0x00,
	})
	if e.err != nil {
		return e.err
	}
	e.bw = newBitWriter(e.w)
	var prevDC [3]int32
	w, h := img.Width(), img.Height()
	for my := 0; my < h; my += 16 {
		for mx := 0; mx < w; mx += 16 {
			// Four Y blocks per MCU, in (v,h) raster order, matching the
			// 2x2 sampling factor declared in writeSOF.
			for _, off := range [4][2]int{{0, 0}, {8, 0}, {0, 8}, {8, 8}} {
				var y fdctidct.Block
				fillYBlock(img, mx+off[0], my+off[1], &y)
				prevDC[0] = e.writeBlock(&y, quantIndexLuminance, huffIndexLuminanceDC, huffIndexLuminanceAC, prevDC[0])
			}
			var cb, cr fdctidct.Block
			fillChromaBlock(img, mx, my, true, &cb)
			fillChromaBlock(img, mx, my, false, &cr)
			prevDC[1] = e.writeBlock(&cb, quantIndexChrominance, huffIndexChrominanceDC, huffIndexChrominanceAC, prevDC[1])
			prevDC[2] = e.writeBlock(&cr, quantIndexChrominance, huffIndexChrominanceDC, huffIndexChrominanceAC, prevDC[2])
		}
	}
	if err := e.bw.flush(); err != nil {
		return err
	}
	return e.bw.err
}

func (e *encoder) writeSOSGray(img *pixel.Image[pixel.Y8]) error {
	e.write([]byte{0xff, markerSOS, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3f, 0x00})
	if e.err != nil {
		return e.err
	}
	e.bw = newBitWriter(e.w)
	var prevDC int32
	w, h := img.Width(), img.Height()
	for by := 0; by < h; by += 8 {
		for bx := 0; bx < w; bx += 8 {
			var blk fdctidct.Block
			fillGrayBlock(img, bx, by, &blk)
			prevDC = e.writeBlock(&blk, quantIndexLuminance, huffIndexLuminanceDC, huffIndexLuminanceAC, prevDC)
		}
	}
	if err := e.bw.flush(); err != nil {
		return err
	}
	return e.bw.err
}

// writeBlock forward-transforms, quantizes and Huffman-encodes one 8x8
// block (natural order), returning its post-quantization DC value.
// Grounded on the teacher's writer.go writeBlock.
func (e *encoder) writeBlock(b *fdctidct.Block, q quantIndex, dcIdx, acIdx huffIndex, prevDC int32) int32 {
	fdctidct.Forward(b)
	dc := div(b[0], 8*int32(e.quant[q][0]))
	e.emitHuffRLE(dcIdx, 0, dc-prevDC)

	runLength := int32(0)
	for zig := 1; zig < blockSize; zig++ {
		ac := div(b[unzig[zig]], 8*int32(e.quant[q][zig]))
		if ac == 0 {
			runLength++
			continue
		}
		for runLength > 15 {
			e.bw.emitHuff(e.huff[acIdx][0xf0])
			runLength -= 16
		}
		e.emitHuffRLE(acIdx, runLength, ac)
		runLength = 0
	}
	if runLength > 0 {
		e.bw.emitHuff(e.huff[acIdx][0x00])
	}
	return dc
}

// emitHuffRLE emits the Huffman code for the (runLength, value) pair:
// a 4-bit run/4-bit size byte, followed by value's magnitude bits.
func (e *encoder) emitHuffRLE(h huffIndex, runLength, value int32) {
	a, b := value, value
	if a < 0 {
		a, b = -value, value-1
	}
	var nBits uint32
	if a < 0x100 {
		nBits = uint32(bitCount[a])
	} else {
		nBits = uint32(bitCount[a>>8]) + 8
	}
	e.bw.emitHuff(e.huff[h][runLength<<4|int32(nBits)])
	if nBits > 0 {
		e.bw.emitBits(b, uint(nBits))
	}
}

func fillGrayBlock(img *pixel.Image[pixel.Y8], ox, oy int, dst *fdctidct.Block) {
	w, h := img.Width(), img.Height()
	for j := 0; j < 8; j++ {
		sy := clampCoord(oy+j, h)
		for i := 0; i < 8; i++ {
			sx := clampCoord(ox+i, w)
			dst[8*j+i] = int32(img.PixelAt(sx, sy).Y) - 128
		}
	}
}

func fillYBlock(img *pixel.Image[pixel.YCbCr8], ox, oy int, dst *fdctidct.Block) {
	w, h := img.Width(), img.Height()
	for j := 0; j < 8; j++ {
		sy := clampCoord(oy+j, h)
		for i := 0; i < 8; i++ {
			sx := clampCoord(ox+i, w)
			dst[8*j+i] = int32(img.PixelAt(sx, sy).Y) - 128
		}
	}
}

// fillChromaBlock downsamples the 16x16 pixel region at (ox,oy) to an 8x8
// block by averaging each 2x2 pixel group, the 4:2:0 chroma subsampling
// step. Grounded on the teacher's writer.go scale (there applied to
// already-encoded 8x8 blocks; here applied directly to source pixels,
// since pixel.Image[YCbCr8] has no pre-subsampled chroma planes to scale).
func fillChromaBlock(img *pixel.Image[pixel.YCbCr8], ox, oy int, chromaBlue bool, dst *fdctidct.Block) {
	w, h := img.Width(), img.Height()
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			var sum int32
			for dy := 0; dy < 2; dy++ {
				sy := clampCoord(oy+2*j+dy, h)
				for dx := 0; dx < 2; dx++ {
					sx := clampCoord(ox+2*i+dx, w)
					p := img.PixelAt(sx, sy)
					if chromaBlue {
						sum += int32(p.Cb)
					} else {
						sum += int32(p.Cr)
					}
				}
			}
			dst[8*j+i] = (sum+2)>>2 - 128
		}
	}
}

// clampCoord replicates the edge pixel for the partial blocks along the
// right/bottom border when width/height are not multiples of 8, matching
// the teacher's min(p.X+i, xmax) edge handling.
func clampCoord(v, limit int) int {
	if v >= limit {
		return limit - 1
	}
	return v
}
