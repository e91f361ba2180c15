package savestate

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"io"
)

var ErrShort = errors.New("savestate: short buffer")

// Writer frames records onto a sink. All integers are little-endian.
type Writer struct {
	w io.Writer
	n int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *Writer) Uint32(v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	_, err := w.Write(tmp[:])
	return err
}

// Record writes [u32 len][p].
func (w *Writer) Record(p []byte) error {
	if uint64(len(p)) > 0xffffffff {
		return errors.Errorf("record too large: %d bytes", len(p))
	}
	if err := w.Uint32(uint32(len(p))); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// bytes written so far
func (w *Writer) Len() int64 {
	return w.n
}

// Reader is a bounds-checked cursor over a snapshot buffer.
// Slices it returns alias the buffer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.off >= len(r.buf) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}

// Next consumes exactly n bytes.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, errors.Wrapf(ErrShort, "need %d bytes at offset %d, have %d", n, r.off, r.Remaining())
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *Reader) Uint32() (uint32, error) {
	p, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Record reads [u32 len][payload] and returns the payload.
func (r *Reader) Record() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.off -= 4
		return nil, errors.Wrapf(ErrShort, "record of %d bytes at offset %d, have %d", n, r.off, r.Remaining()-4)
	}
	return r.Next(int(n))
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) Offset() int {
	return r.off
}
