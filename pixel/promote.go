package pixel

import "github.com/pkg/errors"

// ErrIncompatiblePromotion is returned when a caller asks for a pixel type
// that cannot be reached from the source type by any path in the lossless
// promotion DAG (for example, asking to decode an RGBA8 PNG as Y8).
var ErrIncompatiblePromotion = errors.New("pixel: incompatible promotion")

// opaqueAlpha is the alpha value a promotion synthesizes when widening a
// pixel type that carries no alpha channel into one that does.
const opaqueAlpha = 255

// The following named functions are the edges of the promotion DAG from
// §4.1: each widens a pixel type into a strictly richer one without losing
// any information the destination type is capable of representing. They
// compose: promoting along any path between two types in the DAG yields
// the same result (PromoteY8ToRGBA8(p) == PromoteRGB8ToRGBA8(PromoteY8ToRGB8(p))).

// PromoteY8ToYA8 widens a luminance sample to luminance+alpha, opaque.
func PromoteY8ToYA8(p Y8) YA8 { return YA8{Y: p.Y, A: opaqueAlpha} }

// PromoteY8ToYF widens an 8-bit luminance sample to a float32 one.
func PromoteY8ToYF(p Y8) YF { return YF{Y: float32(p.Y) / 255} }

// PromoteY8ToRGB8 widens a luminance sample to a grey RGB triple.
func PromoteY8ToRGB8(p Y8) RGB8 { return RGB8{R: p.Y, G: p.Y, B: p.Y} }

// PromoteY8ToRGBA8 widens a luminance sample to an opaque grey RGBA quad.
func PromoteY8ToRGBA8(p Y8) RGBA8 { return RGBA8{R: p.Y, G: p.Y, B: p.Y, A: opaqueAlpha} }

// PromoteYFToRGBF widens a float luminance sample to a grey float RGB triple.
func PromoteYFToRGBF(p YF) RGBF { return RGBF{R: p.Y, G: p.Y, B: p.Y} }

// PromoteYA8ToRGB8 widens luminance+alpha to a grey RGB triple, dropping
// the alpha channel (the destination type cannot represent it).
func PromoteYA8ToRGB8(p YA8) RGB8 { return RGB8{R: p.Y, G: p.Y, B: p.Y} }

// PromoteYA8ToRGBA8 widens luminance+alpha to an opaque-channel-preserving
// grey RGBA quad.
func PromoteYA8ToRGBA8(p YA8) RGBA8 { return RGBA8{R: p.Y, G: p.Y, B: p.Y, A: p.A} }

// PromoteRGB8ToRGBA8 widens an RGB triple to an opaque RGBA quad.
func PromoteRGB8ToRGBA8(p RGB8) RGBA8 { return RGBA8{R: p.R, G: p.G, B: p.B, A: opaqueAlpha} }

// PromoteRGB8ToRGBF widens an 8-bit RGB triple to float32, each channel
// scaled by /255.
func PromoteRGB8ToRGBF(p RGB8) RGBF {
	return RGBF{R: float32(p.R) / 255, G: float32(p.G) / 255, B: float32(p.B) / 255}
}

// Promote performs a lossless promotion from pixel type A to pixel type B
// per the DAG in §4.1, following one or two edges as needed. A→A is the
// free identity promotion. It reports ErrIncompatiblePromotion if B is not
// reachable from A.
func Promote[A, B Pixel](p A) (B, error) {
	var zero B
	src := any(p)
	switch dst := any(zero).(type) {
	case Y8:
		if v, ok := src.(Y8); ok {
			return any(v).(B), nil
		}
	case YA8:
		switch v := src.(type) {
		case Y8:
			return any(PromoteY8ToYA8(v)).(B), nil
		case YA8:
			return any(v).(B), nil
		}
	case RGB8:
		switch v := src.(type) {
		case Y8:
			return any(PromoteY8ToRGB8(v)).(B), nil
		case YA8:
			return any(PromoteYA8ToRGB8(v)).(B), nil
		case RGB8:
			return any(v).(B), nil
		}
	case RGBA8:
		switch v := src.(type) {
		case Y8:
			return any(PromoteY8ToRGBA8(v)).(B), nil
		case YA8:
			return any(PromoteYA8ToRGBA8(v)).(B), nil
		case RGB8:
			return any(PromoteRGB8ToRGBA8(v)).(B), nil
		case RGBA8:
			return any(v).(B), nil
		}
	case YCbCr8:
		if v, ok := src.(YCbCr8); ok {
			return any(v).(B), nil
		}
	default:
		_ = dst
	}
	return zero, errors.Wrapf(ErrIncompatiblePromotion, "cannot promote %T to %T", p, zero)
}
