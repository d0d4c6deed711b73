// Package ramfs implements a heap-backed, read-write in-memory
// filesystem backend (spec §4.3 / component C4): a tree of directory and
// file nodes, with full read-write semantics and a private pool budget
// that can be exhausted.
//
// Grounded on the teacher's S3FilesystemBackend/S3FileHandle handle
// bookkeeping (atomic handle allocation, single-owner handles) adapted
// from S3-object storage to an in-process node tree, and on the
// teacher's use of container/list (internal/cache/lru.go) for O(1)
// ordered detach — used here for each directory's children list.
package ramfs

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/vfs"
)

const component = "ramfs"

type kind int

const (
	kindFile kind = iota
	kindDir
)

// node is one tree entry: shared fields per spec §3, plus file- or
// directory-specific fields. elem is this node's element in its
// parent's children list, enabling O(1) unlink on remove/rename.
type node struct {
	parent   *node
	elem     *list.Element
	kind     kind
	name     string
	mtime    time.Time
	data     []byte
	children *list.List // of *node, insertion order, only for kindDir
}

// FS is the RAM filesystem backend. It owns a simple byte budget
// standing in for the picox pool allocator over a user-supplied buffer
// (spec §3): every grow of a file's data buffer consumes from it, and
// exhausting it yields perr.NoMemory.
type FS struct {
	mu       sync.Mutex
	root     *node
	cwd      *node
	nameMax  int
	capacity int64 // 0 means unlimited
	used     int64
}

// Option configures a new FS.
type Option func(*FS)

// WithCapacity bounds the total bytes the filesystem's file data may
// consume; once exhausted, writes fail (partially) with perr.NoMemory.
func WithCapacity(bytes int64) Option {
	return func(fs *FS) { fs.capacity = bytes }
}

// WithNameMax overrides the default per-segment name length limit.
func WithNameMax(n int) Option {
	return func(fs *FS) { fs.nameMax = n }
}

// New creates a filesystem with a fresh root directory.
func New(opts ...Option) *FS {
	root := &node{kind: kindDir, name: "/", mtime: time.Now(), children: list.New()}
	fs := &FS{root: root, cwd: root, nameMax: vfs.DefaultNameMax}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

func newErr(k perr.Kind, op, path string) error {
	return perr.New(k, component, op).WithPath(path)
}

func containsForbidden(seg string) bool {
	return strings.ContainsAny(seg, ":\\")
}

// walk resolves path to its final node, starting at root for an
// absolute path or at cwd for a relative one. It climbs to parent on
// "..", never above root, and stays in place on ".".
func (fs *FS) walk(path string) (*node, error) {
	cur := fs.cwd
	if path == "" || isAbsolute(path) {
		cur = fs.root
	}
	rest := path
	for {
		seg, next := top(rest)
		if seg == "" {
			break
		}
		if len(seg) > fs.nameMax {
			return nil, newErr(perr.NameTooLong, "resolve", path)
		}
		if containsForbidden(seg) {
			return nil, newErr(perr.InvalidName, "resolve", path)
		}
		switch seg {
		case ".":
			// stay
		case "..":
			if cur.parent != nil {
				cur = cur.parent
			}
		default:
			if cur.kind != kindDir {
				return nil, newErr(perr.NotDirectory, "resolve", path)
			}
			child := findChild(cur, seg)
			if child == nil {
				return nil, newErr(perr.NoEntry, "resolve", path)
			}
			cur = child
		}
		rest = next
	}
	return cur, nil
}

// resolveParent splits path into its parent directory node, the final
// segment's name, and that segment's existing node if any — the
// "closest resolved parent" the spec requires open-with-create and
// mkdir to report when the trailing segment is missing.
func (fs *FS) resolveParent(path string) (parent *node, name string, existing *node, err error) {
	parentPath := parentOf(path)
	if parentPath == "" && !isAbsolute(path) {
		parentPath = "."
	}
	name = nameOf(path)
	if len(name) > fs.nameMax {
		return nil, "", nil, newErr(perr.NameTooLong, "resolve", path)
	}
	if containsForbidden(name) {
		return nil, "", nil, newErr(perr.InvalidName, "resolve", path)
	}
	parent, err = fs.walk(parentPath)
	if err != nil {
		return nil, "", nil, err
	}
	if parent.kind != kindDir {
		return nil, "", nil, newErr(perr.NotDirectory, "resolve", path)
	}
	existing = findChild(parent, name)
	return parent, name, existing, nil
}

func findChild(dir *node, name string) *node {
	for e := dir.children.Front(); e != nil; e = e.Next() {
		child := e.Value.(*node)
		if child.name == name {
			return child
		}
	}
	return nil
}

// Open implements vfs.Backend.
func (fs *FS) Open(path string, mode vfs.OpenMode) (vfs.FileHandle, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	flags := vfs.FlagsOf(mode)
	parent, name, existing, err := fs.resolveParent(path)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.kind == kindDir {
			return nil, newErr(perr.IsDirectory, "open", path)
		}
		if flags.Truncate {
			existing.data = existing.data[:0]
		}
	} else {
		if !flags.Create {
			return nil, newErr(perr.NoEntry, "open", path)
		}
		existing = &node{parent: parent, kind: kindFile, name: name, mtime: time.Now()}
		existing.elem = parent.children.PushBack(existing)
	}

	pos := int64(0)
	if flags.Append {
		pos = int64(len(existing.data))
	}
	return &fileHandle{fs: fs, node: existing, pos: pos, flags: flags}, nil
}

// Close implements vfs.Backend.
func (fs *FS) Close(fh vfs.FileHandle) error {
	h, ok := fh.(*fileHandle)
	if !ok {
		return newErr(perr.Invalid, "close", "")
	}
	h.closed = true
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

// Write implements vfs.Backend.
func (fs *FS) Write(fh vfs.FileHandle, data []byte) (int, error) {
	h, ok := fh.(*fileHandle)
	if !ok {
		return 0, newErr(perr.Invalid, "write", "")
	}
	return h.Write(data)
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
	return h.Tell()
}

// Flush implements vfs.Backend.
func (fs *FS) Flush(fh vfs.FileHandle) error {
	h, ok := fh.(*fileHandle)
	if !ok {
		return newErr(perr.Invalid, "flush", "")
	}
	return h.Flush()
}

// Mkdir implements vfs.Backend.
func (fs *FS) Mkdir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, existing, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	if existing != nil {
		return newErr(perr.Exist, "mkdir", path)
	}
	n := &node{parent: parent, kind: kindDir, name: name, mtime: time.Now(), children: list.New()}
	n.elem = parent.children.PushBack(n)
	return nil
}

// Opendir implements vfs.Backend.
func (fs *FS) Opendir(path string) (vfs.DirHandle, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.walk(path)
	if err != nil {
		return nil, err
	}
	if n.kind != kindDir {
		return nil, newErr(perr.NotDirectory, "opendir", path)
	}
	return &dirHandle{fs: fs, dir: n, cursor: n.children.Front()}, nil
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
	d, ok := dh.(*dirHandle)
	if !ok {
		return newErr(perr.Invalid, "closedir", "")
	}
	return d.Close()
}

// Chdir implements vfs.Backend.
func (fs *FS) Chdir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.walk(path)
	if err != nil {
		return err
	}
	if n.kind != kindDir {
		return newErr(perr.NotDirectory, "chdir", path)
	}
	fs.cwd = n
	return nil
}

// Getcwd implements vfs.Backend.
func (fs *FS) Getcwd(buf []byte) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var names []string
	for n := fs.cwd; n != nil && n.parent != nil; n = n.parent {
		names = append(names, n.name)
	}
	var b strings.Builder
	b.WriteByte('/')
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteString(names[i])
		if i > 0 {
			b.WriteByte('/')
		}
	}
	out := b.String()
	if len(out)+1 > cap(buf) && cap(buf) > 0 {
		return "", newErr(perr.Range, "getcwd", "")
	}
	return out, nil
}

// Remove implements vfs.Backend.
func (fs *FS) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.walk(path)
	if err != nil {
		return err
	}
	if n == fs.root {
		return newErr(perr.Busy, "remove", path)
	}
	if n == fs.cwd {
		return newErr(perr.Busy, "remove", path)
	}
	if n.kind == kindDir && n.children.Len() > 0 {
		return newErr(perr.NotEmpty, "remove", path)
	}
	n.parent.children.Remove(n.elem)
	return nil
}

// Rename implements vfs.Backend.
func (fs *FS) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	src, err := fs.walk(oldPath)
	if err != nil {
		return err
	}
	newParent, newName, existing, err := fs.resolveParent(newPath)
	if err != nil {
		return err
	}
	if existing != nil {
		return newErr(perr.Exist, "rename", newPath)
	}

	src.parent.children.Remove(src.elem)
	src.parent = newParent
	src.name = newName
	src.elem = newParent.children.PushBack(src)
	return nil
}

// Stat implements vfs.Backend.
func (fs *FS) Stat(path string) (vfs.Stat, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.walk(path)
	if err != nil {
		return vfs.Stat{}, err
	}
	mode := vfs.ModeRegular
	size := uint64(len(n.data))
	if n.kind == kindDir {
		mode = vfs.ModeDirectory
		size = 0
	}
	return vfs.Stat{Size: size, Mtime: n.mtime, Mode: mode}, nil
}

// Utime implements vfs.Backend.
func (fs *FS) Utime(path string, mtime int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.walk(path)
	if err != nil {
		return err
	}
	n.mtime = time.Unix(mtime, 0)
	return nil
}

func isAbsolute(p string) bool {
	if p == "" {
		return false
	}
	return p[0] == '/'
}

// top returns the first segment of rest and the remainder, skipping
// leading/duplicated separators.
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

func nameOf(p string) string {
	trimmed := strings.TrimRight(p, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return trimmed
	}
	return trimmed[i+1:]
}

func parentOf(p string) string {
	trimmed := strings.TrimRight(p, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return ""
	}
	if i == 0 {
		return "/"
	}
	return trimmed[:i]
}
