package jpeg

import "github.com/dlecorfec/imgcodec/internal/codecerr"

// Error kinds returned by Decode/Encode, per §7. Test with errors.Is.
var (
	ErrInvalidSignature      = codecerr.New("jpeg", "invalid signature")
	ErrMalformedStream       = codecerr.New("jpeg", "malformed stream")
	ErrInvalidAC             = codecerr.New("jpeg", "invalid AC coefficient run")
	ErrMissingRestart        = codecerr.New("jpeg", "missing restart marker")
	ErrUnsupportedComponents = codecerr.New("jpeg", "unsupported component count")
	ErrUnsupportedFeature    = codecerr.New("jpeg", "unsupported feature")
	ErrTruncated             = codecerr.New("jpeg", "truncated stream")
)
