// Package pixel implements the fixed-layout pixel records and the flat,
// interleaved image buffer that the png and jpeg packages decode into and
// encode out of.
//
// Each pixel type is a small, concrete, comparable struct. There is no
// per-pixel dynamic dispatch: generic functions in this package (N,
// PixelAt, WritePixel, Promote, Luma, ...) are parameterized by
// the concrete pixel type and select the right packing logic with a type
// switch on the zero value, which the compiler resolves once per
// instantiation rather than once per call.
package pixel

// Component is the scalar type underlying a pixel's channels.
type Component interface {
	~uint8 | ~float32
}

// Y8 is a single 8-bit luminance sample.
type Y8 struct{ Y uint8 }

// YA8 is an 8-bit luminance sample with an 8-bit alpha channel.
type YA8 struct{ Y, A uint8 }

// RGB8 is an 8-bit red/green/blue triple.
type RGB8 struct{ R, G, B uint8 }

// RGBA8 is an 8-bit red/green/blue/alpha quadruple.
type RGBA8 struct{ R, G, B, A uint8 }

// YCbCr8 is an 8-bit luma/chroma-blue/chroma-red triple, as used by JPEG.
type YCbCr8 struct{ Y, Cb, Cr uint8 }

// YF is a single 32-bit float luminance sample, in [0,1].
type YF struct{ Y float32 }

// RGBF is a 32-bit float red/green/blue triple, in [0,1] per channel.
type RGBF struct{ R, G, B float32 }

// Pixel is the set of 8-bit-component pixel types. It is the type
// parameter constraint for Image[P].
type Pixel interface {
	Y8 | YA8 | RGB8 | RGBA8 | YCbCr8
}

// PixelF is the set of float32-component pixel types. It is the type
// parameter constraint for ImageF[P].
type PixelF interface {
	YF | RGBF
}

// N returns n(P), the component count of pixel type P.
func N[P Pixel]() int {
	var zero P
	switch any(zero).(type) {
	case Y8:
		return 1
	case YA8:
		return 2
	case RGB8, YCbCr8:
		return 3
	case RGBA8:
		return 4
	}
	panic("pixel: unreachable pixel type")
}

// NF returns n(P) for the float32-component pixel types.
func NF[P PixelF]() int {
	var zero P
	switch any(zero).(type) {
	case YF:
		return 1
	case RGBF:
		return 3
	}
	panic("pixel: unreachable float pixel type")
}

// pack writes p's components, in their fixed intra-pixel order, to dst.
// dst must have length >= N[P]().
func pack[P Pixel](p P, dst []byte) {
	switch v := any(p).(type) {
	case Y8:
		dst[0] = v.Y
	case YA8:
		dst[0], dst[1] = v.Y, v.A
	case RGB8:
		dst[0], dst[1], dst[2] = v.R, v.G, v.B
	case RGBA8:
		dst[0], dst[1], dst[2], dst[3] = v.R, v.G, v.B, v.A
	case YCbCr8:
		dst[0], dst[1], dst[2] = v.Y, v.Cb, v.Cr
	}
}

// unpack reads n(P) components from src in their fixed intra-pixel order
// and returns the assembled pixel.
func unpack[P Pixel](src []byte) P {
	var zero P
	switch any(zero).(type) {
	case Y8:
		return any(Y8{src[0]}).(P)
	case YA8:
		return any(YA8{src[0], src[1]}).(P)
	case RGB8:
		return any(RGB8{src[0], src[1], src[2]}).(P)
	case RGBA8:
		return any(RGBA8{src[0], src[1], src[2], src[3]}).(P)
	case YCbCr8:
		return any(YCbCr8{src[0], src[1], src[2]}).(P)
	}
	panic("pixel: unreachable pixel type")
}

func packF[P PixelF](p P, dst []float32) {
	switch v := any(p).(type) {
	case YF:
		dst[0] = v.Y
	case RGBF:
		dst[0], dst[1], dst[2] = v.R, v.G, v.B
	}
}

func unpackF[P PixelF](src []float32) P {
	var zero P
	switch any(zero).(type) {
	case YF:
		return any(YF{src[0]}).(P)
	case RGBF:
		return any(RGBF{src[0], src[1], src[2]}).(P)
	}
	panic("pixel: unreachable float pixel type")
}

// ColorMap applies f to every component of p, in place conceptually (p is
// a value type, so ColorMap returns the transformed pixel).
func ColorMap[P Pixel](p P, f func(uint8) uint8) P {
	n := N[P]()
	var buf [4]byte
	pack(p, buf[:n])
	for i := 0; i < n; i++ {
		buf[i] = f(buf[i])
	}
	return unpack[P](buf[:n])
}

// ColorMapF applies f to every component of a float32 pixel.
func ColorMapF[P PixelF](p P, f func(float32) float32) P {
	n := NF[P]()
	var buf [3]float32
	packF(p, buf[:n])
	for i := 0; i < n; i++ {
		buf[i] = f(buf[i])
	}
	return unpackF[P](buf[:n])
}
