package blockview

import (
	"encoding/binary"
	"testing"
)

func TestUint32RoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[4:], 0xDEADBEEF)
	v := New(buf)
	got, err := v.Uint32(4)
	if err != nil {
		t.Fatalf("Uint32 error: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Errorf("Uint32 = %#x, want %#x", got, 0xDEADBEEF)
	}
}

func TestUint32OutOfRange(t *testing.T) {
	buf := make([]byte, 4)
	v := New(buf)
	if _, err := v.Uint32(2); err != ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestCString(t *testing.T) {
	buf := append([]byte("hello"), 0)
	v := New(buf)
	got, err := v.CString(0)
	if err != nil {
		t.Fatalf("CString error: %v", err)
	}
	if got != "hello" {
		t.Errorf("CString = %q, want hello", got)
	}
}

func TestCStringUnterminated(t *testing.T) {
	buf := []byte("hello")
	v := New(buf)
	if _, err := v.CString(0); err != ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange for unterminated string, got %v", err)
	}
}

func TestBytes(t *testing.T) {
	buf := []byte("0123456789")
	v := New(buf)
	got, err := v.Bytes(2, 4)
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if string(got) != "2345" {
		t.Errorf("Bytes = %q, want 2345", got)
	}
	if _, err := v.Bytes(8, 10); err != ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}
