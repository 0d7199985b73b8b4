package imgcodec

import "github.com/dlecorfec/imgcodec/internal/codecerr"

// ErrUnknownFormat is returned by Decode when the input's leading bytes
// match neither the PNG signature nor a JPEG SOI marker.
var ErrUnknownFormat = codecerr.New("imgcodec", "unrecognized image format")
