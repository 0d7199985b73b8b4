// Package codecerr is the shared error-kind plumbing for the png and jpeg
// packages, generalizing the teacher's string-based FormatError /
// UnsupportedError (dlecorfec/progjpeg scan.go) into wrapped sentinel
// errors: callers can errors.Is against a stable kind while the message
// still carries the precise diagnostic text the teacher's errors did.
package codecerr

import "fmt"

// Kind is a stable, comparable error category. Each package defines its own
// Kind values and wraps them with Errorf so that errors.Is(err, SomeKind)
// keeps working after the message text is filled in.
type Kind struct {
	pkg string
	msg string
}

// New returns a Kind that formats as "pkg: msg" and compares equal only to
// itself (and to Errors built from it).
func New(pkg, msg string) Kind { return Kind{pkg: pkg, msg: msg} }

func (k Kind) Error() string { return k.pkg + ": " + k.msg }

// Errorf wraps Kind with additional, call-site-specific detail. The
// returned error still satisfies errors.Is(err, kind).
func (k Kind) Errorf(format string, args ...any) error {
	return &detailedError{kind: k, detail: fmt.Sprintf(format, args...)}
}

type detailedError struct {
	kind   Kind
	detail string
}

func (e *detailedError) Error() string {
	if e.detail == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.detail
}

func (e *detailedError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.kind
}

func (e *detailedError) Unwrap() error { return e.kind }
