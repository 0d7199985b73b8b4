package pixel

// GenerateImage builds an Image[P] of the given dimensions by calling f(x,y)
// once per pixel, in raster order (row-major, top-to-bottom, left-to-right
// within a row).
func GenerateImage[P Pixel](w, h int, f func(x, y int) P) *Image[P] {
	img := NewImage[P](w, h)
	n := N[P]()
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pack(f(x, y), img.data[i:i+n])
			i += n
		}
	}
	return img
}

// GenerateFoldImage builds an Image[P] like GenerateImage, additionally
// threading an accumulator through the raster-order traversal. f returns
// the pixel to write at (x,y) and the accumulator value to carry into the
// next call.
func GenerateFoldImage[P Pixel, Acc any](w, h int, acc0 Acc, f func(acc Acc, x, y int) (P, Acc)) *Image[P] {
	img := NewImage[P](w, h)
	n := N[P]()
	i := 0
	acc := acc0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var p P
			p, acc = f(acc, x, y)
			pack(p, img.data[i:i+n])
			i += n
		}
	}
	return img
}

// Map visits every pixel of src exactly once, in raster order, and builds a
// new image by applying f. The destination pixel type may differ from the
// source's. Map(id) == id, and Map(g) composed with Map(f) equals
// Map(g . f): two successive Map calls may always be fused into one without
// observable difference, which is the law implementations may use to avoid
// allocating the intermediate image.
func Map[A, B Pixel](src *Image[A], f func(A) B) *Image[B] {
	dst := NewImage[B](src.w, src.h)
	na, nb := N[A](), N[B]()
	si, di := 0, 0
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			p := unpack[A](src.data[si : si+na])
			pack(f(p), dst.data[di:di+nb])
			si += na
			di += nb
		}
	}
	return dst
}

// MapInPlace applies f to every pixel of img without allocating a new
// buffer; f's pixel type must match img's.
func MapInPlace[P Pixel](img *Image[P], f func(P) P) {
	n := N[P]()
	for i := 0; i+n <= len(img.data); i += n {
		pack(f(unpack[P](img.data[i:i+n])), img.data[i:i+n])
	}
}
