package romfs

import (
	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/vfs"
)

// fileHandle is a read cursor over a fixed byte range of the image.
// Reads past dataSize clamp to zero bytes, matching ramfs's resolution
// of the same open question.
type fileHandle struct {
	fs       *FS
	dataOff  uint32
	dataSize uint32
	pos      int64
}

// Read implements the read half of vfs.FileHandle.
func (h *fileHandle) Read(buf []byte) (int, error) {
	if h.pos >= int64(h.dataSize) {
		return 0, nil
	}
	remaining := int64(h.dataSize) - h.pos
	want := int64(len(buf))
	if want > remaining {
		want = remaining
	}
	chunk, err := h.fs.img.Bytes(h.dataOff+uint32(h.pos), uint32(want))
	if err != nil {
		return 0, newErr(perr.Protocol, "read", "")
	}
	n := copy(buf, chunk)
	h.pos += int64(n)
	return n, nil
}

// Write always fails: the backing image is immutable.
func (h *fileHandle) Write(data []byte) (int, error) {
	return 0, newErr(perr.Access, "write", "")
}

// Seek implements vfs.FileHandle.
func (h *fileHandle) Seek(offset int64, origin vfs.SeekOrigin) (int64, error) {
	var base int64
	switch origin {
	case vfs.SeekSet:
		base = 0
	case vfs.SeekCurrent:
		base = h.pos
	case vfs.SeekEnd:
		base = int64(h.dataSize)
	default:
		return 0, newErr(perr.Invalid, "seek", "")
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, newErr(perr.Invalid, "seek", "")
	}
	h.pos = newPos
	return h.pos, nil
}

// Tell implements vfs.FileHandle.
func (h *fileHandle) Tell() (int64, error) { return h.pos, nil }

// Flush implements vfs.FileHandle; the image has no write buffer.
func (h *fileHandle) Flush() error { return nil }

// Close implements vfs.FileHandle.
func (h *fileHandle) Close() error { return nil }

// dirHandle walks a directory entry's sibling chain.
type dirHandle struct {
	fs     *FS
	cursor uint32
}

// Readdir implements vfs.DirHandle.
func (d *dirHandle) Readdir() (vfs.DirEntry, bool, error) {
	if d.cursor == absent {
		return vfs.DirEntry{}, false, nil
	}
	name, err := d.fs.entryName(d.cursor)
	if err != nil {
		return vfs.DirEntry{}, false, newErr(perr.Protocol, "readdir", "")
	}
	next, err := d.fs.entrySibling(d.cursor)
	if err != nil {
		return vfs.DirEntry{}, false, newErr(perr.Protocol, "readdir", "")
	}
	d.cursor = next
	return vfs.DirEntry{Name: name}, true, nil
}

// Close implements vfs.DirHandle.
func (d *dirHandle) Close() error {
	d.cursor = absent
	return nil
}
