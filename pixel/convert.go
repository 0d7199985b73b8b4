package pixel

// ConvertRGB8ToYCbCr8 performs the lossy RGB8->YCbCr8 color-space
// conversion using the floating-point coefficients from §4.1, truncating
// toward zero.
func ConvertRGB8ToYCbCr8(p RGB8) YCbCr8 {
	r, g, b := float64(p.R), float64(p.G), float64(p.B)
	y := 0.299*r + 0.587*g + 0.114*b
	cb := -0.16874*r - 0.33126*g + 0.5*b + 128
	cr := 0.5*r - 0.41869*g - 0.08131*b + 128
	return YCbCr8{
		Y:  clampTrunc(y),
		Cb: clampTrunc(cb),
		Cr: clampTrunc(cr),
	}
}

func clampTrunc(v float64) uint8 {
	iv := int64(v) // truncates toward zero, per §4.1.
	if iv < 0 {
		iv = 0
	} else if iv > 255 {
		iv = 255
	}
	return uint8(iv)
}

// yCbCrTables holds the fixed-point lookup tables used by
// ConvertYCbCr8ToRGB8, built once at package init time and shared
// read-only across every decode (§5: "pure immutable data ... shared
// freely across threads").
var (
	crRTable [256]int32
	cbBTable [256]int32
	crGTable [256]int32
	cbGTable [256]int32
)

func init() {
	for i := 0; i < 256; i++ {
		crPrime := float64(i - 128)
		cbPrime := float64(i - 128)
		crRTable[i] = int32(round(1.40200*crPrime*65536)) >> 16
		cbBTable[i] = int32(round(1.77200*cbPrime*65536)) >> 16
		crGTable[i] = -int32(round(0.71414 * crPrime * 65536))
		cbGTable[i] = -int32(round(0.34414*cbPrime*65536)) + 1<<15
	}
}

func round(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}

// ConvertYCbCr8ToRGB8 performs the lossy YCbCr8->RGB8 color-space
// conversion using the fixed-point 16-bit tables from §4.1. The tables are
// the performance-critical IDCT neighbour and must be bit-identical to the
// floating-point definition.
func ConvertYCbCr8ToRGB8(p YCbCr8) RGB8 {
	y := int32(p.Y)
	r := y + crRTable[p.Cr]
	g := y + ((cbGTable[p.Cb] + crGTable[p.Cr]) >> 16)
	b := y + cbBTable[p.Cb]
	return RGB8{R: clampInt32(r), G: clampInt32(g), B: clampInt32(b)}
}

func clampInt32(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
