package jpeg

import (
	"bufio"
	"io"

	"github.com/dlecorfec/imgcodec/internal/fdctidct"
	"github.com/dlecorfec/imgcodec/pixel"
)

const maxComponents = 4

// Marker codes, the second byte of a 0xFF-prefixed marker pair (§3).
const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOF0 = 0xc0
	markerSOF2 = 0xc2
	markerDHT  = 0xc4
	markerDQT  = 0xdb
	markerDRI  = 0xdd
	markerSOS  = 0xda
	markerRST0 = 0xd0
	markerRST7 = 0xd7
	markerAPP0 = 0xe0
	markerAPPf = 0xef
	markerCOM  = 0xfe
)

type component struct {
	id   uint8
	h, v int
	tq   uint8
}

// decoder holds the state accumulated while walking a JPEG marker stream:
// frame geometry, the quantization and Huffman tables named by DQT/DHT,
// and the restart interval, followed across an arbitrary number of
// auxiliary segments until SOS starts the entropy-coded scan.
type decoder struct {
	r  *bufio.Reader
	br *bitReader

	width, height int
	nComp         int
	comp          [maxComponents]component

	quant  [maxTh + 1][blockSize]byte // zig-zag order, as read from DQT.
	huffDC [maxTh + 1]*huffman
	huffAC [maxTh + 1]*huffman

	restartInterval int
}

// Decode reads a baseline sequential JPEG stream and returns its pixels,
// as either a grayscale (Y8) or YCbCr (YCbCr8) image depending on the
// component count, per §4.4 and §6. Progressive streams (SOF2) are
// rejected with ErrUnsupportedFeature; decoding progressive streams is
// out of scope (EncodeProgressive is a write-only extension).
func Decode(r io.Reader) (pixel.DynamicImage, error) {
	d := &decoder{r: bufio.NewReader(r)}
	return d.decode()
}

func (d *decoder) decode() (pixel.DynamicImage, error) {
	var soi [2]byte
	if _, err := io.ReadFull(d.r, soi[:]); err != nil {
		return pixel.DynamicImage{}, ErrTruncated.Errorf("reading SOI: %v", err)
	}
	if soi[0] != 0xff || soi[1] != markerSOI {
		return pixel.DynamicImage{}, ErrInvalidSignature.Errorf("got %#02x%02x", soi[0], soi[1])
	}

	for {
		marker, err := d.readMarker()
		if err != nil {
			return pixel.DynamicImage{}, err
		}
		switch {
		case marker == markerEOI:
			return pixel.DynamicImage{}, ErrMalformedStream.Errorf("unexpected EOI before SOS")
		case marker == markerSOF0:
			if err := d.processSOF(); err != nil {
				return pixel.DynamicImage{}, err
			}
		case marker == markerSOF2:
			return pixel.DynamicImage{}, ErrUnsupportedFeature.Errorf("progressive JPEG (SOF2) decoding is not supported")
		case marker == markerDQT:
			if err := d.processDQT(); err != nil {
				return pixel.DynamicImage{}, err
			}
		case marker == markerDHT:
			if err := d.processDHT(); err != nil {
				return pixel.DynamicImage{}, err
			}
		case marker == markerDRI:
			if err := d.processDRI(); err != nil {
				return pixel.DynamicImage{}, err
			}
		case marker == markerSOS:
			if d.nComp == 0 {
				return pixel.DynamicImage{}, ErrMalformedStream.Errorf("SOS before SOF")
			}
			img, err := d.processSOS()
			if err != nil {
				return pixel.DynamicImage{}, err
			}
			if err := d.expectEOI(); err != nil {
				return pixel.DynamicImage{}, err
			}
			return img, nil
		case marker >= markerAPP0 && marker <= markerAPPf, marker == markerCOM:
			if err := d.skipSegment(); err != nil {
				return pixel.DynamicImage{}, err
			}
		default:
			return pixel.DynamicImage{}, ErrUnsupportedFeature.Errorf("marker 0x%02x", marker)
		}
	}
}

// readMarker scans forward to the next 0xFF-prefixed marker, tolerating
// the fill bytes (extra 0xFF) some encoders insert before a marker code.
func (d *decoder) readMarker() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, ErrTruncated.Errorf("reading marker: %v", err)
	}
	for b != 0xff {
		b, err = d.r.ReadByte()
		if err != nil {
			return 0, ErrTruncated.Errorf("reading marker: %v", err)
		}
	}
	code, err := d.r.ReadByte()
	if err != nil {
		return 0, ErrTruncated.Errorf("reading marker: %v", err)
	}
	for code == 0xff {
		code, err = d.r.ReadByte()
		if err != nil {
			return 0, ErrTruncated.Errorf("reading marker: %v", err)
		}
	}
	return code, nil
}

// readSegment reads a length-prefixed marker segment's payload (the
// 2-byte big-endian length field includes itself).
func (d *decoder) readSegment() ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		return nil, ErrTruncated.Errorf("segment length: %v", err)
	}
	n := int(lenBuf[0])<<8 | int(lenBuf[1])
	if n < 2 {
		return nil, ErrMalformedStream.Errorf("segment length %d too small", n)
	}
	buf := make([]byte, n-2)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, ErrTruncated.Errorf("segment payload: %v", err)
	}
	return buf, nil
}

func (d *decoder) skipSegment() error {
	_, err := d.readSegment()
	return err
}

// processSOF parses a baseline (SOF0) frame header, §4.4.
func (d *decoder) processSOF() error {
	seg, err := d.readSegment()
	if err != nil {
		return err
	}
	if len(seg) < 6 {
		return ErrMalformedStream.Errorf("SOF0 too short")
	}
	if seg[0] != 8 {
		return ErrUnsupportedFeature.Errorf("sample precision %d", seg[0])
	}
	d.height = int(seg[1])<<8 | int(seg[2])
	d.width = int(seg[3])<<8 | int(seg[4])
	if d.width == 0 || d.height == 0 {
		return ErrMalformedStream.Errorf("zero frame dimension")
	}
	nComp := int(seg[5])
	if nComp != 1 && nComp != 3 {
		return ErrUnsupportedComponents.Errorf("%d components", nComp)
	}
	if len(seg) != 6+3*nComp {
		return ErrMalformedStream.Errorf("SOF0 length inconsistent with component count")
	}
	d.nComp = nComp
	for i := 0; i < nComp; i++ {
		off := 6 + 3*i
		d.comp[i].id = seg[off]
		d.comp[i].h = int(seg[off+1] >> 4)
		d.comp[i].v = int(seg[off+1] & 0x0f)
		d.comp[i].tq = seg[off+2]
		if d.comp[i].h < 1 || d.comp[i].h > 4 || d.comp[i].v < 1 || d.comp[i].v > 4 {
			return ErrMalformedStream.Errorf("bad sampling factor for component %d", i)
		}
		if d.comp[i].tq > maxTh {
			return ErrMalformedStream.Errorf("bad quantization table selector for component %d", i)
		}
	}
	if nComp == 1 {
		d.comp[0].h, d.comp[0].v = 1, 1
	}
	return nil
}

func (d *decoder) processDQT() error {
	seg, err := d.readSegment()
	if err != nil {
		return err
	}
	for len(seg) > 0 {
		pq := seg[0] >> 4
		tq := seg[0] & 0x0f
		if tq > maxTh {
			return ErrMalformedStream.Errorf("bad quantization table id %d", tq)
		}
		seg = seg[1:]
		if pq != 0 {
			return ErrUnsupportedFeature.Errorf("16-bit quantization table precision")
		}
		if len(seg) < blockSize {
			return ErrMalformedStream.Errorf("DQT segment too short")
		}
		copy(d.quant[tq][:], seg[:blockSize])
		seg = seg[blockSize:]
	}
	return nil
}

func (d *decoder) processDHT() error {
	seg, err := d.readSegment()
	if err != nil {
		return err
	}
	for len(seg) > 0 {
		if len(seg) < 17 {
			return ErrMalformedStream.Errorf("DHT segment too short")
		}
		class := seg[0] >> 4
		th := seg[0] & 0x0f
		if th > maxTh {
			return ErrMalformedStream.Errorf("bad Huffman table id %d", th)
		}
		var counts [16]byte
		copy(counts[:], seg[1:17])
		total := 0
		for _, c := range counts {
			total += int(c)
		}
		seg = seg[17:]
		if len(seg) < total {
			return ErrMalformedStream.Errorf("DHT segment too short for declared symbol count")
		}
		symbols := append([]byte(nil), seg[:total]...)
		seg = seg[total:]
		h, err := buildHuffman(counts, symbols)
		if err != nil {
			return err
		}
		if class == 0 {
			d.huffDC[th] = h
		} else {
			d.huffAC[th] = h
		}
	}
	return nil
}

func (d *decoder) processDRI() error {
	seg, err := d.readSegment()
	if err != nil {
		return err
	}
	if len(seg) != 2 {
		return ErrMalformedStream.Errorf("DRI length")
	}
	d.restartInterval = int(seg[0])<<8 | int(seg[1])
	return nil
}

type scanComponent struct {
	compIndex int
	td, ta    uint8
}

func (d *decoder) processSOS() (pixel.DynamicImage, error) {
	seg, err := d.readSegment()
	if err != nil {
		return pixel.DynamicImage{}, err
	}
	if len(seg) < 1 {
		return pixel.DynamicImage{}, ErrMalformedStream.Errorf("SOS too short")
	}
	ns := int(seg[0])
	if ns != d.nComp {
		return pixel.DynamicImage{}, ErrUnsupportedFeature.Errorf("partial scan (%d of %d components): non-interleaved scans unsupported", ns, d.nComp)
	}
	if len(seg) != 1+2*ns+3 {
		return pixel.DynamicImage{}, ErrMalformedStream.Errorf("SOS length mismatch")
	}
	var scan [maxComponents]scanComponent
	for i := 0; i < ns; i++ {
		cs := seg[1+2*i]
		idx := -1
		for j := 0; j < d.nComp; j++ {
			if d.comp[j].id == cs {
				idx = j
			}
		}
		if idx < 0 {
			return pixel.DynamicImage{}, ErrMalformedStream.Errorf("unknown component selector %d", cs)
		}
		scan[i].compIndex = idx
		scan[i].td = seg[2+2*i] >> 4
		scan[i].ta = seg[2+2*i] & 0x0f
		if scan[i].td > maxTh || scan[i].ta > maxTh {
			return pixel.DynamicImage{}, ErrMalformedStream.Errorf("bad Td/Ta selector")
		}
	}
	ss, se, aha := seg[1+2*ns], seg[2+2*ns], seg[3+2*ns]
	ah, al := aha>>4, aha&0x0f
	if ss != 0 || se != 63 || ah != 0 || al != 0 {
		return pixel.DynamicImage{}, ErrUnsupportedFeature.Errorf("non-baseline spectral selection/successive approximation")
	}
	return d.decodeScan(scan[:ns])
}

// componentPlane holds one frame component's decoded samples at full
// block resolution (the MCU grid rounded up), before chroma upsampling.
type componentPlane struct {
	stride int
	data   []byte
}

func (p *componentPlane) at(x, y int) byte { return p.data[y*p.stride+x] }

func (d *decoder) decodeScan(scan []scanComponent) (pixel.DynamicImage, error) {
	hmax, vmax := 0, 0
	for i := 0; i < d.nComp; i++ {
		if d.comp[i].h > hmax {
			hmax = d.comp[i].h
		}
		if d.comp[i].v > vmax {
			vmax = d.comp[i].v
		}
	}
	mcusPerLine := (d.width + 8*hmax - 1) / (8 * hmax)
	mcusPerCol := (d.height + 8*vmax - 1) / (8 * vmax)
	totalMCUs := mcusPerLine * mcusPerCol

	planes := make([]componentPlane, d.nComp)
	for i := 0; i < d.nComp; i++ {
		stride := mcusPerLine * d.comp[i].h * 8
		rows := mcusPerCol * d.comp[i].v * 8
		planes[i] = componentPlane{stride: stride, data: make([]byte, stride*rows)}
	}

	d.br = newBitReader(d.r)
	var dcPred [maxComponents]int32
	expectedRestart := 0

	for mcu := 0; mcu < totalMCUs; mcu++ {
		mx, my := mcu%mcusPerLine, mcu/mcusPerLine
		for _, sc := range scan {
			comp := d.comp[sc.compIndex]
			dcTable, acTable := d.huffDC[sc.td], d.huffAC[sc.ta]
			if dcTable == nil || acTable == nil {
				return pixel.DynamicImage{}, ErrMalformedStream.Errorf("scan references undefined Huffman table")
			}
			for by := 0; by < comp.v; by++ {
				for bx := 0; bx < comp.h; bx++ {
					var zz [blockSize]int32
					s, err := d.br.decodeHuffman(dcTable)
					if err != nil {
						return pixel.DynamicImage{}, d.wrapEntropyErr(err)
					}
					if s > 11 {
						return pixel.DynamicImage{}, ErrMalformedStream.Errorf("bad DC magnitude category %d", s)
					}
					diff, err := d.br.receiveExtend(int(s))
					if err != nil {
						return pixel.DynamicImage{}, d.wrapEntropyErr(err)
					}
					dcPred[sc.compIndex] += diff
					zz[0] = dcPred[sc.compIndex]

					for k := 1; k <= 63; {
						rs, err := d.br.decodeHuffman(acTable)
						if err != nil {
							return pixel.DynamicImage{}, d.wrapEntropyErr(err)
						}
						r, sBits := int(rs>>4), int(rs&0x0f)
						if sBits == 0 {
							if r == 15 {
								k += 16
								continue
							}
							break // EOB
						}
						k += r
						if k > 63 {
							return pixel.DynamicImage{}, ErrInvalidAC.Errorf("coefficient index %d out of range", k)
						}
						val, err := d.br.receiveExtend(sBits)
						if err != nil {
							return pixel.DynamicImage{}, d.wrapEntropyErr(err)
						}
						zz[k] = val
						k++
					}

					q := d.quant[comp.tq]
					var blk fdctidct.Block
					for z := 0; z < blockSize; z++ {
						blk[unzig[z]] = zz[z] * int32(q[z])
					}
					samples := fdctidct.Inverse(&blk)

					originX := (mx*comp.h + bx) * 8
					originY := (my*comp.v + by) * 8
					plane := &planes[sc.compIndex]
					for row := 0; row < 8; row++ {
						copy(plane.data[(originY+row)*plane.stride+originX:], samples[row*8:row*8+8])
					}
				}
			}
		}

		if d.restartInterval > 0 && (mcu+1)%d.restartInterval == 0 && mcu+1 < totalMCUs {
			marker, err := d.br.expectMarker()
			if err != nil {
				return pixel.DynamicImage{}, err
			}
			if marker < markerRST0 || marker > markerRST7 {
				return pixel.DynamicImage{}, ErrMissingRestart.Errorf("expected RST%d, got marker 0x%02x", expectedRestart, marker)
			}
			if got := int(marker - markerRST0); got != expectedRestart {
				return pixel.DynamicImage{}, ErrMissingRestart.Errorf("expected RST%d, got RST%d", expectedRestart, got)
			}
			expectedRestart = (expectedRestart + 1) % 8
			d.br.reset()
			dcPred = [maxComponents]int32{}
		}
	}

	return d.assemble(planes, hmax, vmax)
}

// wrapEntropyErr turns the internal errEntropyMarker sentinel into a
// diagnostic ErrMissingRestart, since reaching a
// marker mid-block means the scan ended (or a restart was lost) before
// all expected coefficients were read.
func (d *decoder) wrapEntropyErr(err error) error {
	if err == errEntropyMarker {
		return ErrMissingRestart.Errorf("marker 0x%02x encountered mid-block", d.br.marker)
	}
	return err
}

func (d *decoder) assemble(planes []componentPlane, hmax, vmax int) (pixel.DynamicImage, error) {
	if d.nComp == 1 {
		img := pixel.NewMutableImage[pixel.Y8](d.width, d.height)
		plane := planes[0]
		for y := 0; y < d.height; y++ {
			for x := 0; x < d.width; x++ {
				img.WritePixel(x, y, pixel.Y8{Y: plane.at(x, y)})
			}
		}
		return pixel.FromY8(img.Freeze()), nil
	}

	img := pixel.NewMutableImage[pixel.YCbCr8](d.width, d.height)
	yPlane, cbPlane, crPlane := planes[0], planes[1], planes[2]
	yH, yV := d.comp[0].h, d.comp[0].v
	cbH, cbV := d.comp[1].h, d.comp[1].v
	crH, crV := d.comp[2].h, d.comp[2].v
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			yv := yPlane.at(x*yH/hmax, y*yV/vmax)
			cb := cbPlane.at(x*cbH/hmax, y*cbV/vmax)
			cr := crPlane.at(x*crH/hmax, y*crV/vmax)
			img.WritePixel(x, y, pixel.YCbCr8{Y: yv, Cb: cb, Cr: cr})
		}
	}
	return pixel.FromYCbCr8(img.Freeze()), nil
}

func (d *decoder) expectEOI() error {
	m, err := d.br.expectMarker()
	if err != nil {
		return err
	}
	if m != markerEOI {
		return ErrMalformedStream.Errorf("expected EOI, got marker 0x%02x", m)
	}
	return nil
}
