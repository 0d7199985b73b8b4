package pixel

import "fmt"

// ExtractPlane copies the selected component (0-indexed into the pixel
// type's fixed intra-pixel order) of every pixel of src into a new
// single-component Y8 image. It panics if plane is outside [0, n(P)).
func ExtractPlane[P Pixel](src *Image[P], plane int) *Image[Y8] {
	n := N[P]()
	if plane < 0 || plane >= n {
		panic(fmt.Sprintf("pixel: ExtractPlane: plane %d out of range [0,%d)", plane, n))
	}
	dst := NewImage[Y8](src.w, src.h)
	si, di := 0, 0
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			dst.data[di] = src.data[si+plane]
			si += n
			di++
		}
	}
	return dst
}
