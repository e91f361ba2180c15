package savestate

import (
	"bytes"
	"github.com/pkg/errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Record([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := w.Record(nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Uint32(0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 4+3+4+4 {
		t.Fatalf("bad length: %d", w.Len())
	}
	if !bytes.Equal(buf.Bytes()[:4], []byte{3, 0, 0, 0}) {
		t.Fatalf("length prefix not little-endian: %x", buf.Bytes()[:4])
	}

	r := NewReader(buf.Bytes())
	if rec, err := r.Record(); err != nil || string(rec) != "abc" {
		t.Fatal("Record() mismatch", rec, err)
	}
	if rec, err := r.Record(); err != nil || len(rec) != 0 {
		t.Fatal("empty Record() mismatch", rec, err)
	}
	if v, err := r.Uint32(); err != nil || v != 0xdeadbeef {
		t.Fatal("Uint32() mismatch", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatal("bytes left over")
	}
	if _, err := r.Uint32(); errors.Cause(err) != ErrShort {
		t.Fatalf("expected ErrShort, got %v", err)
	}
}

func TestRecordBounds(t *testing.T) {
	// claims 16 bytes, carries 2
	r := NewReader([]byte{16, 0, 0, 0, 1, 2})
	if _, err := r.Record(); errors.Cause(err) != ErrShort {
		t.Fatalf("expected ErrShort, got %v", err)
	}
	if r.Offset() != 0 {
		t.Fatalf("failed Record() moved the cursor to %d", r.Offset())
	}
	if _, err := r.Next(-1); errors.Cause(err) != ErrShort {
		t.Fatal("negative Next() accepted")
	}
	if _, err := r.Next(7); errors.Cause(err) != ErrShort {
		t.Fatal("oversized Next() accepted")
	}
	p := make([]byte, 10)
	if n, _ := r.Read(p); n != 6 {
		t.Fatalf("Read() returned %d bytes", n)
	}
	if _, err := r.Read(p); err == nil {
		t.Fatal("Read() past end should return EOF")
	}
}
