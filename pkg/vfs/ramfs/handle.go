package ramfs

import (
	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/vfs"
)

// growMin is the minimum buffer capacity growth step (spec §3: "the
// buffer grows by x1.5, minimum 32").
const growMin = 32

type fileHandle struct {
	fs     *FS
	node   *node
	pos    int64
	flags  vfs.Flags
	closed bool
}

// Read implements vfs.FileHandle. Reads past the end of the file return
// zero bytes with no error (spec open question, resolved in DESIGN.md).
func (h *fileHandle) Read(buf []byte) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	if !h.flags.Read {
		return 0, newErr(perr.Access, "read", h.node.name)
	}
	if h.pos >= int64(len(h.node.data)) {
		return 0, nil
	}
	n := copy(buf, h.node.data[h.pos:])
	h.pos += int64(n)
	return n, nil
}

// Write implements vfs.FileHandle. Append mode always writes at the
// current end of the file, ignoring the cursor. A write that crosses the
// pool's capacity boundary is partial: as many bytes as fit are written
// and the remainder is reported as perr.NoMemory (spec §9 open
// question, resolved as "partial").
func (h *fileHandle) Write(data []byte) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	if !h.flags.Write {
		return 0, newErr(perr.Access, "write", h.node.name)
	}
	if h.flags.Append {
		h.pos = int64(len(h.node.data))
	}

	required := int(h.pos) + len(data)
	fit, growErr := h.fs.growTo(h.node, required)
	writable := data
	if fit < required {
		allowed := fit - int(h.pos)
		if allowed < 0 {
			allowed = 0
		}
		writable = data[:allowed]
	}

	if len(h.node.data) < int(h.pos)+len(writable) {
		grown := make([]byte, int(h.pos)+len(writable))
		copy(grown, h.node.data)
		h.node.data = grown
	}
	n := copy(h.node.data[h.pos:], writable)
	h.pos += int64(n)

	if n < len(data) {
		return n, newErr(perr.NoMemory, "write", h.node.name)
	}
	return n, growErr
}

// Seek implements vfs.FileHandle. Seeking beyond size is purely virtual
// and does not allocate or fill intervening bytes until a write occurs.
func (h *fileHandle) Seek(offset int64, origin vfs.SeekOrigin) (int64, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	var base int64
	switch origin {
	case vfs.SeekSet:
		base = 0
	case vfs.SeekCurrent:
		base = h.pos
	case vfs.SeekEnd:
		base = int64(len(h.node.data))
	default:
		return 0, newErr(perr.Invalid, "seek", h.node.name)
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, newErr(perr.Invalid, "seek", h.node.name)
	}
	h.pos = newPos
	return h.pos, nil
}

// Tell implements vfs.FileHandle.
func (h *fileHandle) Tell() (int64, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	return h.pos, nil
}

// Flush implements vfs.FileHandle; RAM files have nothing to flush.
func (h *fileHandle) Flush() error { return nil }

// Close implements vfs.FileHandle.
func (h *fileHandle) Close() error {
	h.closed = true
	return nil
}

// growTo grows node's capacity budget to accommodate required bytes
// using the x1.5/min-32 policy, clamped to the filesystem's capacity
// budget. It returns the size actually accommodated (which may be less
// than required) and a perr.NoMemory error if the budget was exhausted.
func (fs *FS) growTo(n *node, required int) (int, error) {
	cur := len(n.data)
	if required <= cur {
		return cur, nil
	}
	if fs.capacity <= 0 {
		return required, nil
	}

	target := cur
	if target == 0 {
		target = growMin
	}
	for target < required {
		target = target * 3 / 2
	}

	delta := int64(target - cur)
	available := fs.capacity - fs.used
	if delta <= available {
		fs.used += delta
		return target, nil
	}

	// Partial: accommodate as much as the remaining budget allows.
	if available <= 0 {
		return cur, newErr(perr.NoMemory, "write", n.name)
	}
	fs.used += available
	return cur + int(available), newErr(perr.NoMemory, "write", n.name)
}
