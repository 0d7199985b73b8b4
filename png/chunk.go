package png

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// signature is the 8-byte PNG magic, per ISO 15948.
var signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// chunk is a single length-typed PNG chunk as read off the wire; it lives
// only for the duration of one chunkReader.next call, matching the
// teacher-pack's scoped-decoder-struct idiom (grounded on shutej-apng's
// Chunk_* types, generalized from write-only to read+write).
type chunk struct {
	typ  [4]byte
	data []byte
}

func (c chunk) typeString() string { return string(c.typ[:]) }

type chunkReader struct {
	r io.Reader
}

// next reads one length-prefixed, CRC-checked chunk. It returns io.EOF only
// if the stream ends cleanly at a chunk boundary (callers drive the loop
// themselves and stop at IEND, so in practice this only surfaces a
// truncated-stream error).
func (cr *chunkReader) next() (chunk, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(cr.r, lenBuf[:]); err != nil {
		return chunk{}, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])

	body := make([]byte, 4+length)
	if _, err := io.ReadFull(cr.r, body); err != nil {
		return chunk{}, ErrMalformedStream.Errorf("reading chunk body: %v", err)
	}
	var crcBuf [4]byte
	if _, err := io.ReadFull(cr.r, crcBuf[:]); err != nil {
		return chunk{}, ErrMalformedStream.Errorf("reading chunk CRC: %v", err)
	}

	want := binary.BigEndian.Uint32(crcBuf[:])
	got := crc32.ChecksumIEEE(body)
	if got != want {
		return chunk{}, ErrCrcMismatch.Errorf("chunk %q: got %#08x, want %#08x", body[:4], got, want)
	}

	var c chunk
	copy(c.typ[:], body[:4])
	c.data = body[4:]
	return c, nil
}

// writeChunk emits one length-prefixed, CRC-checked chunk, per ISO 15948
// and shutej-apng's writeChunkTo.
func writeChunk(w io.Writer, typ string, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrapf(err, "png: writing %s chunk length", typ)
	}

	body := make([]byte, 4+len(data))
	copy(body[:4], typ)
	copy(body[4:], data)
	if _, err := w.Write(body); err != nil {
		return errors.Wrapf(err, "png: writing %s chunk body", typ)
	}

	crc := crc32.ChecksumIEEE(body)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	if _, err := w.Write(crcBuf[:]); err != nil {
		return errors.Wrapf(err, "png: writing %s chunk CRC", typ)
	}
	return nil
}
