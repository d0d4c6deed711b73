// Package romfs implements a read-only filesystem backend (spec §4.4 /
// component C5) over a packed, offset-based image blob (spec §6): magic
// "ROMF" at offset 0, a root directory entry at offset 4, and a fixed
// 20-byte shared entry prefix extended per entry kind. All integers are
// little-endian 32-bit, all cross-references are byte offsets from the
// image start, and 0xFFFFFFFF means "absent".
//
// Grounded on the teacher's range-read idiom (GetObjectRange, clamping
// reads to an object's declared size) and on blockview for the
// bounds-checked offset decoding spec §9 calls for.
package romfs

import (
	"strings"
	"time"

	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/vfs"
	"github.com/picofiber/picofiber/pkg/vfs/blockview"
)

const component = "romfs"

const (
	magic = "ROMF"

	offFlags    = 0
	offParent   = 4
	offSibling  = 8
	offName     = 12
	offMtime    = 16
	offFirstKid = 20 // directory only
	offData     = 20 // file only
	offDataSize = 24 // file only

	flagDir  = 0
	flagFile = 1

	absent = blockview.Absent
)

func newErr(k perr.Kind, op, path string) error {
	return perr.New(k, component, op).WithPath(path)
}

// FS is the read-only backend over an immutable image. It holds a
// single borrowed reference to the image bytes; the caller must keep
// the slice alive for the FS's lifetime.
type FS struct {
	img     blockview.View
	cwd     uint32 // offset of current directory entry
	rootOff uint32
	nameMax int
}

// Option configures a newly mounted FS.
type Option func(*FS)

// WithNameMax overrides the default per-segment name length limit.
func WithNameMax(n int) Option {
	return func(fs *FS) { fs.nameMax = n }
}

// Mount validates the image's magic and root entry and returns a ready
// FS. It is an initialisation step, not a constructor you can retry
// mid-use: a malformed image fails fast with perr.Protocol.
func Mount(image []byte, opts ...Option) (*FS, error) {
	if len(image) < 4 || string(image[:4]) != magic {
		return nil, newErr(perr.Protocol, "mount", "")
	}
	view := blockview.New(image)
	flags, err := view.Uint32(offFlags + 4)
	if err != nil {
		return nil, newErr(perr.Protocol, "mount", "")
	}
	if flags != flagDir {
		return nil, newErr(perr.Protocol, "mount", "")
	}
	nameOff, err := view.Uint32(offName + 4)
	if err != nil {
		return nil, newErr(perr.Protocol, "mount", "")
	}
	name, err := view.CString(nameOff)
	if err != nil || name != "/" {
		return nil, newErr(perr.Protocol, "mount", "")
	}
	fs := &FS{img: view, cwd: 4, rootOff: 4, nameMax: vfs.DefaultNameMax}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

func (fs *FS) entryFlags(off uint32) (uint32, error)   { return fs.img.Uint32(off + offFlags) }
func (fs *FS) entryParent(off uint32) (uint32, error)  { return fs.img.Uint32(off + offParent) }
func (fs *FS) entrySibling(off uint32) (uint32, error) { return fs.img.Uint32(off + offSibling) }
func (fs *FS) entryMtime(off uint32) (uint32, error)   { return fs.img.Uint32(off + offMtime) }

func (fs *FS) entryName(off uint32) (string, error) {
	nameOff, err := fs.img.Uint32(off + offName)
	if err != nil {
		return "", err
	}
	return fs.img.CString(nameOff)
}

func (fs *FS) isDir(off uint32) (bool, error) {
	flags, err := fs.entryFlags(off)
	if err != nil {
		return false, err
	}
	return flags == flagDir, nil
}

func (fs *FS) firstChild(off uint32) (uint32, error) {
	return fs.img.Uint32(off + offFirstKid)
}

func (fs *FS) dataRange(off uint32) (dataOff, dataSize uint32, err error) {
	dataOff, err = fs.img.Uint32(off + offData)
	if err != nil {
		return 0, 0, err
	}
	dataSize, err = fs.img.Uint32(off + offDataSize)
	return dataOff, dataSize, err
}

// findChild scans the sibling chain starting at first for an entry
// named name.
func (fs *FS) findChild(dirOff uint32, name string) (uint32, error) {
	first, err := fs.firstChild(dirOff)
	if err != nil {
		return 0, err
	}
	for cur := first; cur != absent; {
		n, err := fs.entryName(cur)
		if err != nil {
			return 0, err
		}
		if n == name {
			return cur, nil
		}
		cur, err = fs.entrySibling(cur)
		if err != nil {
			return 0, err
		}
	}
	return 0, errNotFound
}

var errNotFound = perr.New(perr.NoEntry, component, "resolve")

func (fs *FS) walk(path string) (uint32, error) {
	cur := fs.cwd
	if path == "" || (len(path) > 0 && path[0] == '/') {
		cur = fs.rootOff
	}
	rest := path
	for {
		seg, next := top(rest)
		if seg == "" {
			break
		}
		if len(seg) > fs.nameMax {
			return 0, newErr(perr.NameTooLong, "resolve", path)
		}
		switch seg {
		case ".":
		case "..":
			parent, err := fs.entryParent(cur)
			if err != nil {
				return 0, err
			}
			if parent != absent {
				cur = parent
			}
		default:
			isDir, err := fs.isDir(cur)
			if err != nil {
				return 0, err
			}
			if !isDir {
				return 0, newErr(perr.NotDirectory, "resolve", path)
			}
			child, err := fs.findChild(cur, seg)
			if err != nil {
				return 0, newErr(perr.NoEntry, "resolve", path)
			}
			cur = child
		}
		rest = next
	}
	return cur, nil
}

func top(p string) (seg, rest string) {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if p == "" {
		return "", ""
	}
	i := strings.IndexByte(p, '/')
	if i < 0 {
		return p, ""
	}
	rest = p[i+1:]
	for len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}
	return p[:i], rest
}

// Open implements vfs.Backend. Only plain-read modes are accepted; any
// other mode is refused with perr.Access, since the image is immutable.
func (fs *FS) Open(path string, mode vfs.OpenMode) (vfs.FileHandle, error) {
	if mode != vfs.ReadOnly {
		return nil, newErr(perr.Access, "open", path)
	}
	off, err := fs.walk(path)
	if err != nil {
		return nil, err
	}
	isDir, err := fs.isDir(off)
	if err != nil {
		return nil, err
	}
	if isDir {
		return nil, newErr(perr.IsDirectory, "open", path)
	}
	dataOff, dataSize, err := fs.dataRange(off)
	if err != nil {
		return nil, err
	}
	return &fileHandle{fs: fs, dataOff: dataOff, dataSize: dataSize}, nil
}

// Close implements vfs.Backend.
func (fs *FS) Close(fh vfs.FileHandle) error {
	_, ok := fh.(*fileHandle)
	if !ok {
		return newErr(perr.Invalid, "close", "")
	}
	return nil
}

// Read implements vfs.Backend.
func (fs *FS) Read(fh vfs.FileHandle, buf []byte) (int, error) {
	h, ok := fh.(*fileHandle)
	if !ok {
		return 0, newErr(perr.Invalid, "read", "")
	}
	return h.Read(buf)
}

// Write implements vfs.Backend; the ROM filesystem is read-only.
func (fs *FS) Write(fh vfs.FileHandle, data []byte) (int, error) {
	return 0, newErr(perr.Access, "write", "")
}

// Seek implements vfs.Backend.
func (fs *FS) Seek(fh vfs.FileHandle, offset int64, origin vfs.SeekOrigin) (int64, error) {
	h, ok := fh.(*fileHandle)
	if !ok {
		return 0, newErr(perr.Invalid, "seek", "")
	}
	return h.Seek(offset, origin)
}

// Tell implements vfs.Backend.
func (fs *FS) Tell(fh vfs.FileHandle) (int64, error) {
	h, ok := fh.(*fileHandle)
	if !ok {
		return 0, newErr(perr.Invalid, "tell", "")
	}
	return h.pos, nil
}

// Flush implements vfs.Backend; nothing to flush for a read-only image.
func (fs *FS) Flush(fh vfs.FileHandle) error { return nil }

// Mkdir implements vfs.Backend; declined, the image is read-only.
func (fs *FS) Mkdir(path string) error { return newErr(perr.Access, "mkdir", path) }

// Opendir implements vfs.Backend.
func (fs *FS) Opendir(path string) (vfs.DirHandle, error) {
	off, err := fs.walk(path)
	if err != nil {
		return nil, err
	}
	isDir, err := fs.isDir(off)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, newErr(perr.NotDirectory, "opendir", path)
	}
	first, err := fs.firstChild(off)
	if err != nil {
		return nil, err
	}
	return &dirHandle{fs: fs, cursor: first}, nil
}

// Readdir implements vfs.Backend.
func (fs *FS) Readdir(dh vfs.DirHandle) (vfs.DirEntry, bool, error) {
	d, ok := dh.(*dirHandle)
	if !ok {
		return vfs.DirEntry{}, false, newErr(perr.Invalid, "readdir", "")
	}
	return d.Readdir()
}

// Closedir implements vfs.Backend.
func (fs *FS) Closedir(dh vfs.DirHandle) error {
	_, ok := dh.(*dirHandle)
	if !ok {
		return newErr(perr.Invalid, "closedir", "")
	}
	return nil
}

// Chdir implements vfs.Backend.
func (fs *FS) Chdir(path string) error {
	off, err := fs.walk(path)
	if err != nil {
		return err
	}
	isDir, err := fs.isDir(off)
	if err != nil {
		return err
	}
	if !isDir {
		return newErr(perr.NotDirectory, "chdir", path)
	}
	fs.cwd = off
	return nil
}

// Getcwd implements vfs.Backend.
func (fs *FS) Getcwd(buf []byte) (string, error) {
	var names []string
	for off := fs.cwd; off != fs.rootOff; {
		name, err := fs.entryName(off)
		if err != nil {
			return "", err
		}
		names = append(names, name)
		parent, err := fs.entryParent(off)
		if err != nil {
			return "", err
		}
		off = parent
	}
	var b strings.Builder
	b.WriteByte('/')
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteString(names[i])
		if i > 0 {
			b.WriteByte('/')
		}
	}
	return b.String(), nil
}

// Remove implements vfs.Backend; declined, the image is read-only.
func (fs *FS) Remove(path string) error { return newErr(perr.Access, "remove", path) }

// Rename implements vfs.Backend; declined, the image is read-only.
func (fs *FS) Rename(oldPath, newPath string) error {
	return newErr(perr.Access, "rename", oldPath)
}

// Stat implements vfs.Backend.
func (fs *FS) Stat(path string) (vfs.Stat, error) {
	off, err := fs.walk(path)
	if err != nil {
		return vfs.Stat{}, err
	}
	isDir, err := fs.isDir(off)
	if err != nil {
		return vfs.Stat{}, err
	}
	mtimeRaw, err := fs.entryMtime(off)
	if err != nil {
		return vfs.Stat{}, err
	}
	st := vfs.Stat{Mtime: time.Unix(int64(mtimeRaw), 0)}
	if isDir {
		st.Mode = vfs.ModeDirectory
		return st, nil
	}
	_, dataSize, err := fs.dataRange(off)
	if err != nil {
		return vfs.Stat{}, err
	}
	st.Mode = vfs.ModeRegular
	st.Size = uint64(dataSize)
	return st, nil
}

// Utime implements vfs.Backend; the image is read-only and the ROM
// backend declines rather than touching it (spec §9 open question,
// resolved as "not-supported").
func (fs *FS) Utime(path string, mtime int64) error {
	return newErr(perr.NotSupported, "utime", path)
}
