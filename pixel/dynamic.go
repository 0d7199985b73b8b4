package pixel

// Kind identifies which concrete Image[P] a DynamicImage carries.
type Kind int

const (
	KindInvalid Kind = iota
	KindY8
	KindYA8
	KindRGB8
	KindRGBA8
	KindYCbCr8
)

func (k Kind) String() string {
	switch k {
	case KindY8:
		return "Y8"
	case KindYA8:
		return "YA8"
	case KindRGB8:
		return "RGB8"
	case KindRGBA8:
		return "RGBA8"
	case KindYCbCr8:
		return "YCbCr8"
	default:
		return "invalid"
	}
}

// DynamicImage is a tagged union over the concrete Image[P] types,
// produced by format-agnostic decoders when the pixel type is not known
// statically until the file header has been parsed.
type DynamicImage struct {
	kind   Kind
	y8     *Image[Y8]
	ya8    *Image[YA8]
	rgb8   *Image[RGB8]
	rgba8  *Image[RGBA8]
	ycbcr8 *Image[YCbCr8]
}

// Kind reports which concrete image DynamicImage carries.
func (d DynamicImage) Kind() Kind { return d.kind }

// FromY8 wraps an Image[Y8] in a DynamicImage.
func FromY8(img *Image[Y8]) DynamicImage { return DynamicImage{kind: KindY8, y8: img} }

// FromYA8 wraps an Image[YA8] in a DynamicImage.
func FromYA8(img *Image[YA8]) DynamicImage { return DynamicImage{kind: KindYA8, ya8: img} }

// FromRGB8 wraps an Image[RGB8] in a DynamicImage.
func FromRGB8(img *Image[RGB8]) DynamicImage { return DynamicImage{kind: KindRGB8, rgb8: img} }

// FromRGBA8 wraps an Image[RGBA8] in a DynamicImage.
func FromRGBA8(img *Image[RGBA8]) DynamicImage { return DynamicImage{kind: KindRGBA8, rgba8: img} }

// FromYCbCr8 wraps an Image[YCbCr8] in a DynamicImage.
func FromYCbCr8(img *Image[YCbCr8]) DynamicImage {
	return DynamicImage{kind: KindYCbCr8, ycbcr8: img}
}

// Y8 returns the wrapped Image[Y8] and whether the kind matched.
func (d DynamicImage) Y8() (*Image[Y8], bool) { return d.y8, d.kind == KindY8 }

// YA8 returns the wrapped Image[YA8] and whether the kind matched.
func (d DynamicImage) YA8() (*Image[YA8], bool) { return d.ya8, d.kind == KindYA8 }

// RGB8 returns the wrapped Image[RGB8] and whether the kind matched.
func (d DynamicImage) RGB8() (*Image[RGB8], bool) { return d.rgb8, d.kind == KindRGB8 }

// RGBA8 returns the wrapped Image[RGBA8] and whether the kind matched.
func (d DynamicImage) RGBA8() (*Image[RGBA8], bool) { return d.rgba8, d.kind == KindRGBA8 }

// YCbCr8 returns the wrapped Image[YCbCr8] and whether the kind matched.
func (d DynamicImage) YCbCr8() (*Image[YCbCr8], bool) { return d.ycbcr8, d.kind == KindYCbCr8 }

// Width returns the wrapped image's width, whatever its concrete kind.
func (d DynamicImage) Width() int {
	switch d.kind {
	case KindY8:
		return d.y8.Width()
	case KindYA8:
		return d.ya8.Width()
	case KindRGB8:
		return d.rgb8.Width()
	case KindRGBA8:
		return d.rgba8.Width()
	case KindYCbCr8:
		return d.ycbcr8.Width()
	default:
		return 0
	}
}

// Height returns the wrapped image's height, whatever its concrete kind.
func (d DynamicImage) Height() int {
	switch d.kind {
	case KindY8:
		return d.y8.Height()
	case KindYA8:
		return d.ya8.Height()
	case KindRGB8:
		return d.rgb8.Height()
	case KindRGBA8:
		return d.rgba8.Height()
	case KindYCbCr8:
		return d.ycbcr8.Height()
	default:
		return 0
	}
}

// ToRGBA8 converts the wrapped image to RGBA8, promoting losslessly where
// the DAG allows (Y8, YA8, RGB8, RGBA8) and converting lossily for YCbCr8
// (via RGB8).
func (d DynamicImage) ToRGBA8() *Image[RGBA8] {
	switch d.kind {
	case KindY8:
		return Map(d.y8, PromoteY8ToRGBA8)
	case KindYA8:
		return Map(d.ya8, PromoteYA8ToRGBA8)
	case KindRGB8:
		return Map(d.rgb8, PromoteRGB8ToRGBA8)
	case KindRGBA8:
		return d.rgba8
	case KindYCbCr8:
		return Map(d.ycbcr8, func(p YCbCr8) RGBA8 {
			rgb := ConvertYCbCr8ToRGB8(p)
			return PromoteRGB8ToRGBA8(rgb)
		})
	default:
		panic("pixel: ToRGBA8: invalid DynamicImage")
	}
}
