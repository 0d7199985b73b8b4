package jpeg

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dlecorfec/imgcodec/internal/fdctidct"
	"github.com/dlecorfec/imgcodec/pixel"
)

// DefaultQuality is the quality used when ProgressiveOptions.Quality is
// left at its zero value.
const DefaultQuality = 75

// ProgressiveScan is a single scan in a progressive JPEG sequence,
// carried over from the teacher's progressive extension: Component
// selects which color component the scan covers (-1 = all components,
// DC scans only), SpectralStart/SpectralEnd bound the zig-zag
// coefficient range, and SuccessiveApprox{High,Low} are reserved for bit
// refinement (this encoder only emits Ah=Al=0 passes).
type ProgressiveScan struct {
	Component                                int
	SpectralStart, SpectralEnd               int
	SuccessiveApproxHigh, SuccessiveApproxLow int
}

// ScanScript is a complete progressive scan sequence.
type ScanScript []ProgressiveScan

// ProgressiveOptions are EncodeProgressive's parameters.
type ProgressiveOptions struct {
	Quality int
	// ScanScript overrides the default scan sequence. Nil selects
	// DefaultColorScanScript.
	ScanScript ScanScript
}

// DefaultGrayscaleScanScript is the default progressive scan script for
// single-component images: DC, then two AC passes.
func DefaultGrayscaleScanScript() ScanScript {
	return ScanScript{
		{Component: 0, SpectralStart: 0, SpectralEnd: 0},
		{Component: 0, SpectralStart: 1, SpectralEnd: 9},
		{Component: 0, SpectralStart: 10, SpectralEnd: 63},
	}
}

// DefaultColorScanScript is the default progressive scan script for
// 3-component images, front-loaded so a low-detail preview appears
// before the full-detail scans complete.
func DefaultColorScanScript() ScanScript {
	return ScanScript{
		{Component: -1, SpectralStart: 0, SpectralEnd: 0},
		{Component: 0, SpectralStart: 1, SpectralEnd: 2},
		{Component: 0, SpectralStart: 3, SpectralEnd: 9},
		{Component: 1, SpectralStart: 1, SpectralEnd: 5},
		{Component: 2, SpectralStart: 1, SpectralEnd: 5},
		{Component: 0, SpectralStart: 10, SpectralEnd: 63},
		{Component: 1, SpectralStart: 6, SpectralEnd: 63},
		{Component: 2, SpectralStart: 6, SpectralEnd: 63},
	}
}

// validateScanScript checks a ScanScript's internal consistency: every
// scan's component is in range, spectral bounds are ordered and within
// [0,63], both successive-approximation values are zero (refinement scans
// are not supported), and DC (0,0)
// scans are the only ones allowed to address all components at once.
func validateScanScript(script ScanScript, nComponent int) error {
	if len(script) == 0 {
		return fmt.Errorf("jpeg: scan script cannot be empty")
	}
	for i, scan := range script {
		if scan.Component < -1 || scan.Component >= nComponent {
			return fmt.Errorf("jpeg: scan %d has invalid component %d (must be -1 to %d)", i, scan.Component, nComponent-1)
		}
		if scan.SpectralStart < 0 || scan.SpectralStart > 63 {
			return fmt.Errorf("jpeg: scan %d has invalid spectral start %d", i, scan.SpectralStart)
		}
		if scan.SpectralEnd < scan.SpectralStart || scan.SpectralEnd > 63 {
			return fmt.Errorf("jpeg: scan %d has invalid spectral end %d", i, scan.SpectralEnd)
		}
		if scan.SuccessiveApproxHigh != 0 || scan.SuccessiveApproxLow != 0 {
			return fmt.Errorf("jpeg: scan %d: successive approximation refinement is not supported", i)
		}
		isDC := scan.SpectralStart == 0 && scan.SpectralEnd == 0
		if !isDC && scan.Component == -1 {
			return fmt.Errorf("jpeg: AC scan %d cannot address all components at once", i)
		}
	}
	return nil
}

// EncodeProgressive writes img as a progressive (SOF2) JPEG following a
// ScanScript, a non-default path kept alongside the baseline Encode so
// the teacher's progressive scan-planning machinery stays exercised.
// Adapted from the teacher's writeProgressive/writeProgressiveSOS/
// writePartialBlock (dlecorfec/progjpeg writer.go); unlike Encode, it is
// not part of the spec's baseline invariants.
func EncodeProgressive(w io.Writer, img *pixel.Image[pixel.YCbCr8], opts *ProgressiveOptions) error {
	quality := DefaultQuality
	var script ScanScript
	if opts != nil {
		if opts.Quality != 0 {
			quality = opts.Quality
		}
		script = opts.ScanScript
	}
	if script == nil {
		script = DefaultColorScanScript()
	}
	if err := validateScanScript(script, 3); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, quant: scaledQuant(quality)}
	e.writeSOI()
	e.writeDQT()
	e.writeSOF(img.Width(), img.Height(), 3, markerSOF2)
	e.writeDHT(3)

	blocks := extractYCbCrBlocks(img)
	for _, scan := range script {
		if err := e.writeProgressiveSOS(blocks, scan); err != nil {
			return err
		}
	}
	e.writeEOI()
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// blockGrid holds every component's post-FDCT natural-order coefficients
// for the whole image under 4:2:0 subsampling, computed once and reused
// across every scan in the script (each scan re-reads the same
// coefficients; only the FDCT need happen once per block, not once per
// scan). Y is stored at full block resolution (one 8x8 block per MCU
// quadrant); Cb/Cr are stored at one block per 16x16 MCU, matching the
// baseline encoder's writeSOSColor layout.
type blockGrid struct {
	mcuWide, mcuHigh int
	y                []fdctidct.Block // len = mcuWide*2 * mcuHigh*2, row-major over Y block positions.
	cb, cr           []fdctidct.Block // len = mcuWide * mcuHigh.
}

func extractYCbCrBlocks(img *pixel.Image[pixel.YCbCr8]) *blockGrid {
	w, h := img.Width(), img.Height()
	mw := (w + 15) / 16
	mh := (h + 15) / 16
	g := &blockGrid{
		mcuWide: mw, mcuHigh: mh,
		y:  make([]fdctidct.Block, mw*2*mh*2),
		cb: make([]fdctidct.Block, mw*mh),
		cr: make([]fdctidct.Block, mw*mh),
	}
	yBlocksWide := mw * 2
	for my := 0; my < mh; my++ {
		for mx := 0; mx < mw; mx++ {
			ox, oy := mx*16, my*16
			for qi, off := range [4][2]int{{0, 0}, {8, 0}, {0, 8}, {8, 8}} {
				var blk fdctidct.Block
				fillYBlock(img, ox+off[0], oy+off[1], &blk)
				fdctidct.Forward(&blk)
				by := my*2 + qi/2
				bx := mx*2 + qi%2
				g.y[by*yBlocksWide+bx] = blk
			}
			var cb, cr fdctidct.Block
			fillChromaBlock(img, ox, oy, true, &cb)
			fillChromaBlock(img, ox, oy, false, &cr)
			fdctidct.Forward(&cb)
			fdctidct.Forward(&cr)
			idx := my*mw + mx
			g.cb[idx] = cb
			g.cr[idx] = cr
		}
	}
	return g
}

func (e *encoder) writeProgressiveSOS(g *blockGrid, scan ProgressiveScan) error {
	if scan.Component != -1 {
		hdr := []byte{0xff, markerSOS, 0x00, 0x08, 0x01, byte(scan.Component + 1), 0x00}
		if scan.Component != 0 {
			hdr[6] = 0x11
		}
		e.write(hdr)
	} else {
		e.write([]byte{
			0xff, markerSOS, 0x00, 0x0c, 0x03,
			0x01, 0x00, 0x02, 0x11, 0x03, 0x11,
		})
	}
	e.write([]byte{byte(scan.SpectralStart), byte(scan.SpectralEnd), 0x00})
	if e.err != nil {
		return e.err
	}

	e.bw = newBitWriter(e.w)
	var prevDC [3]int32
	if scan.Component == -1 {
		// Interleaved DC scan: walk MCUs in the same 4-Y+1-Cb+1-Cr order
		// the baseline encoder uses, so every component's DC predictor
		// resets in lockstep with the decoder's MCU loop.
		yBlocksWide := g.mcuWide * 2
		for my := 0; my < g.mcuHigh; my++ {
			for mx := 0; mx < g.mcuWide; mx++ {
				for qi := 0; qi < 4; qi++ {
					by := my*2 + qi/2
					bx := mx*2 + qi%2
					blk := g.y[by*yBlocksWide+bx]
					prevDC[0] = e.writePartialBlock(&blk, quantIndexLuminance, huffIndexLuminanceDC, huffIndexLuminanceAC, prevDC[0], scan.SpectralStart, scan.SpectralEnd)
				}
				idx := my*g.mcuWide + mx
				cb, cr := g.cb[idx], g.cr[idx]
				prevDC[1] = e.writePartialBlock(&cb, quantIndexChrominance, huffIndexChrominanceDC, huffIndexChrominanceAC, prevDC[1], scan.SpectralStart, scan.SpectralEnd)
				prevDC[2] = e.writePartialBlock(&cr, quantIndexChrominance, huffIndexChrominanceDC, huffIndexChrominanceAC, prevDC[2], scan.SpectralStart, scan.SpectralEnd)
			}
		}
		return e.bw.flush()
	}

	// Non-interleaved (single-component) scan: every block of that
	// component's plane, in raster order.
	var blocks []fdctidct.Block
	dcIdx, acIdx, q := huffIndexLuminanceDC, huffIndexLuminanceAC, quantIndexLuminance
	switch scan.Component {
	case 0:
		blocks = g.y
	case 1:
		blocks = g.cb
		dcIdx, acIdx, q = huffIndexChrominanceDC, huffIndexChrominanceAC, quantIndexChrominance
	case 2:
		blocks = g.cr
		dcIdx, acIdx, q = huffIndexChrominanceDC, huffIndexChrominanceAC, quantIndexChrominance
	}
	var prev int32
	for i := range blocks {
		blk := blocks[i]
		prev = e.writePartialBlock(&blk, q, dcIdx, acIdx, prev, scan.SpectralStart, scan.SpectralEnd)
	}
	return e.bw.flush()
}

// writePartialBlock Huffman-encodes the zig-zag coefficient range
// [ss,se] of an already-FDCT'd block, per the teacher's writePartialBlock.
func (e *encoder) writePartialBlock(b *fdctidct.Block, q quantIndex, dcIdx, acIdx huffIndex, prevDC int32, ss, se int) int32 {
	if ss == 0 && se == 0 {
		dc := div(b[0], 8*int32(e.quant[q][0]))
		e.emitHuffRLE(dcIdx, 0, dc-prevDC)
		return dc
	}
	runLength := int32(0)
	for zig := ss; zig <= se; zig++ {
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
	return prevDC
}
