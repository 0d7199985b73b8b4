package pixel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageInvariantLength(t *testing.T) {
	for _, tc := range []struct {
		name string
		w, h int
		n    int
	}{
		{"Y8 3x4", 3, 4, 1},
		{"RGBA8 5x1", 5, 1, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			switch tc.n {
			case 1:
				img := NewImage[Y8](tc.w, tc.h)
				require.Len(t, img.Data(), tc.w*tc.h*tc.n)
			case 4:
				img := NewImage[RGBA8](tc.w, tc.h)
				require.Len(t, img.Data(), tc.w*tc.h*tc.n)
			}
		})
	}
}

func TestWritePixelThenPixelAt(t *testing.T) {
	img := NewMutableImage[RGB8](4, 4)
	p := RGB8{R: 10, G: 20, B: 30}
	img.WritePixel(2, 1, p)
	assert.Equal(t, p, img.ReadPixel(2, 1))

	frozen := img.Freeze()
	assert.Equal(t, p, frozen.PixelAt(2, 1))
}

func TestPixelAtOutOfBoundsPanics(t *testing.T) {
	img := NewImage[Y8](2, 2)
	assert.Panics(t, func() { img.PixelAt(2, 0) })
	assert.Panics(t, func() { img.PixelAt(0, -1) })
}

func TestMapIdentityLaw(t *testing.T) {
	src := GenerateImage[RGB8](3, 3, func(x, y int) RGB8 {
		return RGB8{R: uint8(x), G: uint8(y), B: uint8(x + y)}
	})
	id := Map(src, func(p RGB8) RGB8 { return p })
	if diff := cmp.Diff(src.Data(), id.Data()); diff != "" {
		t.Errorf("Map(id) != id (-src +id):\n%s", diff)
	}
}

func TestMapCompositionLaw(t *testing.T) {
	src := GenerateImage[Y8](5, 5, func(x, y int) Y8 { return Y8{Y: uint8(x*5 + y)} })
	f := func(p Y8) Y8 { return Y8{Y: p.Y + 1} }
	g := func(p Y8) Y8 { return Y8{Y: p.Y * 2} }

	twoStep := Map(Map(src, f), g)
	fused := Map(src, func(p Y8) Y8 { return g(f(p)) })

	assert.Equal(t, fused.Data(), twoStep.Data())
}

func TestPromoteCompositionAgreesAlongAnyPath(t *testing.T) {
	y := Y8{Y: 200}

	direct, err := Promote[Y8, RGBA8](y)
	require.NoError(t, err)

	viaYA8, err := Promote[YA8, RGBA8](PromoteY8ToYA8(y))
	require.NoError(t, err)
	assert.Equal(t, direct, viaYA8)

	viaRGB8, err := Promote[RGB8, RGBA8](PromoteY8ToRGB8(y))
	require.NoError(t, err)
	assert.Equal(t, direct, viaRGB8)
}

func TestPromoteIdentityIsFree(t *testing.T) {
	rgb := RGB8{R: 1, G: 2, B: 3}
	got, err := Promote[RGB8, RGB8](rgb)
	require.NoError(t, err)
	assert.Equal(t, rgb, got)
}

func TestPromoteIncompatibleFails(t *testing.T) {
	_, err := Promote[RGBA8, Y8](RGBA8{R: 1, G: 2, B: 3, A: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompatiblePromotion)
}

func TestConvertRGBYCbCrRoundTripsWithinTolerance(t *testing.T) {
	for r := 0; r < 256; r += 17 {
		for g := 0; g < 256; g += 23 {
			for b := 0; b < 256; b += 29 {
				rgb := RGB8{R: uint8(r), G: uint8(g), B: uint8(b)}
				back := ConvertYCbCr8ToRGB8(ConvertRGB8ToYCbCr8(rgb))
				assert.LessOrEqual(t, absDiff(rgb.R, back.R), uint8(2))
				assert.LessOrEqual(t, absDiff(rgb.G, back.G), uint8(2))
				assert.LessOrEqual(t, absDiff(rgb.B, back.B), uint8(2))
			}
		}
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestLuma(t *testing.T) {
	assert.Equal(t, uint8(128), Luma(Y8{Y: 128}))
	assert.Equal(t, uint8(128), Luma(YA8{Y: 128, A: 0}))
	assert.Equal(t, uint8(128), Luma(YCbCr8{Y: 128}))
	// floor(0.3*255 + 0.59*0 + 0.11*0) = floor(76.5) = 76
	assert.Equal(t, uint8(76), Luma(RGB8{R: 255, G: 0, B: 0}))
}

func TestExtractPlane(t *testing.T) {
	src := GenerateImage[RGB8](2, 2, func(x, y int) RGB8 {
		return RGB8{R: uint8(x), G: uint8(y), B: 9}
	})
	g := ExtractPlane(src, 1)
	assert.Equal(t, uint8(0), g.PixelAt(0, 0).Y)
	assert.Equal(t, uint8(1), g.PixelAt(0, 1).Y)

	assert.Panics(t, func() { ExtractPlane(src, 3) })
}

func TestDynamicImageToRGBA8(t *testing.T) {
	y8 := GenerateImage[Y8](2, 1, func(x, y int) Y8 { return Y8{Y: uint8(100 + x)} })
	d := FromY8(y8)
	rgba := d.ToRGBA8()
	assert.Equal(t, RGBA8{R: 100, G: 100, B: 100, A: 255}, rgba.PixelAt(0, 0))
	assert.Equal(t, KindY8, d.Kind())
}
