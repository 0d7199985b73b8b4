package pixel

import "fmt"

// Image is a width x height raster of pixels of type P, backed by a flat,
// interleaved component buffer. Pixel (x,y) occupies
// data[(y*w+x)*n(P) : (y*w+x)*n(P)+n(P)]. The origin is top-left; y grows
// downward.
//
// The zero value is not a valid Image; construct one with NewImage or
// GenerateImage.
type Image[P Pixel] struct {
	w, h int
	data []byte
}

// NewImage allocates a zeroed Image of the given dimensions.
func NewImage[P Pixel](w, h int) *Image[P] {
	if w < 0 || h < 0 {
		panic("pixel: negative image dimensions")
	}
	return &Image[P]{w: w, h: h, data: make([]byte, w*h*N[P]())}
}

// NewImageFromData wraps an existing, already-populated component buffer.
// len(data) must equal w*h*n(P); it panics otherwise. Ownership of data
// transfers to the returned Image.
func NewImageFromData[P Pixel](w, h int, data []byte) *Image[P] {
	if want := w * h * N[P](); len(data) != want {
		panic(fmt.Sprintf("pixel: NewImageFromData: got %d bytes, want %d", len(data), want))
	}
	return &Image[P]{w: w, h: h, data: data}
}

// Width returns the image width in pixels.
func (img *Image[P]) Width() int { return img.w }

// Height returns the image height in pixels.
func (img *Image[P]) Height() int { return img.h }

// Data returns the backing component buffer. Callers must not retain a
// mutable reference across further writes through this Image unless they
// intend the aliasing.
func (img *Image[P]) Data() []byte { return img.data }

// Stride is n(P), the number of components per pixel.
func (img *Image[P]) Stride() int { return N[P]() }

func (img *Image[P]) checkBounds(x, y int) {
	if x < 0 || x >= img.w || y < 0 || y >= img.h {
		panic(fmt.Sprintf("pixel: PixelAt: (%d,%d) out of bounds for %dx%d image", x, y, img.w, img.h))
	}
}

// PixelAt returns the pixel at (x,y). It panics if (x,y) is out of bounds.
func (img *Image[P]) PixelAt(x, y int) P {
	img.checkBounds(x, y)
	n := N[P]()
	i := (y*img.w + x) * n
	return unpack[P](img.data[i : i+n])
}

// UnsafePixelAt reads the pixel whose first component lives at the given
// component index, without bounds checking. Callers establish the index is
// in range; a violation is a program bug, not a recoverable error.
func (img *Image[P]) UnsafePixelAt(componentIndex int) P {
	n := N[P]()
	return unpack[P](img.data[componentIndex : componentIndex+n])
}

// MutableImage has the same layout as Image but permits in-place component
// writes. Build one with NewMutableImage, fill it during a decode, then
// hand it off via Freeze — ownership of the backing buffer transfers, no
// copy is made.
type MutableImage[P Pixel] struct {
	w, h int
	data []byte
}

// NewMutableImage allocates a zeroed MutableImage of the given dimensions.
func NewMutableImage[P Pixel](w, h int) *MutableImage[P] {
	if w < 0 || h < 0 {
		panic("pixel: negative image dimensions")
	}
	return &MutableImage[P]{w: w, h: h, data: make([]byte, w*h*N[P]())}
}

// Width returns the image width in pixels.
func (img *MutableImage[P]) Width() int { return img.w }

// Height returns the image height in pixels.
func (img *MutableImage[P]) Height() int { return img.h }

// Data returns the backing component buffer.
func (img *MutableImage[P]) Data() []byte { return img.data }

func (img *MutableImage[P]) checkBounds(x, y int) {
	if x < 0 || x >= img.w || y < 0 || y >= img.h {
		panic(fmt.Sprintf("pixel: (%d,%d) out of bounds for %dx%d image", x, y, img.w, img.h))
	}
}

// ReadPixel returns the pixel at (x,y).
func (img *MutableImage[P]) ReadPixel(x, y int) P {
	img.checkBounds(x, y)
	n := N[P]()
	i := (y*img.w + x) * n
	return unpack[P](img.data[i : i+n])
}

// WritePixel overwrites the pixel at (x,y) with p.
func (img *MutableImage[P]) WritePixel(x, y int, p P) {
	img.checkBounds(x, y)
	n := N[P]()
	i := (y*img.w + x) * n
	pack(p, img.data[i:i+n])
}

// Freeze hands off the backing buffer as an immutable Image, transferring
// ownership without copying.
func (img *MutableImage[P]) Freeze() *Image[P] {
	return &Image[P]{w: img.w, h: img.h, data: img.data}
}

// ImageF is Image's counterpart for the float32-component pixel types
// (YF, RGBF).
type ImageF[P PixelF] struct {
	w, h int
	data []float32
}

// NewImageF allocates a zeroed ImageF of the given dimensions.
func NewImageF[P PixelF](w, h int) *ImageF[P] {
	if w < 0 || h < 0 {
		panic("pixel: negative image dimensions")
	}
	return &ImageF[P]{w: w, h: h, data: make([]float32, w*h*NF[P]())}
}

// Width returns the image width in pixels.
func (img *ImageF[P]) Width() int { return img.w }

// Height returns the image height in pixels.
func (img *ImageF[P]) Height() int { return img.h }

// Data returns the backing component buffer.
func (img *ImageF[P]) Data() []float32 { return img.data }

func (img *ImageF[P]) checkBounds(x, y int) {
	if x < 0 || x >= img.w || y < 0 || y >= img.h {
		panic(fmt.Sprintf("pixel: (%d,%d) out of bounds for %dx%d image", x, y, img.w, img.h))
	}
}

// PixelAt returns the pixel at (x,y). It panics if (x,y) is out of bounds.
func (img *ImageF[P]) PixelAt(x, y int) P {
	img.checkBounds(x, y)
	n := NF[P]()
	i := (y*img.w + x) * n
	return unpackF[P](img.data[i : i+n])
}

// WritePixel overwrites the pixel at (x,y) with p.
func (img *ImageF[P]) WritePixel(x, y int, p P) {
	img.checkBounds(x, y)
	n := NF[P]()
	i := (y*img.w + x) * n
	packF(p, img.data[i:i+n])
}
