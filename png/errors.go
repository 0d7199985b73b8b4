package png

import "github.com/dlecorfec/imgcodec/internal/codecerr"

// Error kinds returned by Decode/Encode, per spec.md §7. Test with errors.Is.
var (
	ErrInvalidSignature = codecerr.New("png", "invalid signature")
	ErrCrcMismatch      = codecerr.New("png", "chunk CRC-32 mismatch")
	ErrInvalidFilter    = codecerr.New("png", "invalid filter byte")
	ErrMissingPalette   = codecerr.New("png", "palette color type without PLTE chunk")
	ErrMalformedStream  = codecerr.New("png", "malformed stream")
	ErrUnsupportedIHDR  = codecerr.New("png", "unsupported IHDR combination")
)
